package main

import (
	"os"

	"github.com/lugondev/go-cpamm/cmd/cpamm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
