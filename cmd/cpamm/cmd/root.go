package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpamm/internal/common"
	"github.com/lugondev/go-cpamm/internal/config"
)

var (
	cfgFile string
	output  string

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpamm",
	Short: "cpamm - a constant-product AMM pool engine",
	Long: `cpamm runs constant-product liquidity pools on an embedded ledger.

It provides commands for:
- Quoting swaps, deposits and withdrawals
- Deriving pool addresses
- Replaying scenario files against the pool program
- Browsing the operation journal
- Inspecting pools locally or over RPC`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.cpamm.yaml or $HOME/.cpamm.yaml)")
	flags.StringVarP(&output, "output", "o", "text", "output format (text or json)")
	flags.String("rpc", "", "Solana RPC endpoint")
	flags.String("network", "", "Solana network (mainnet, devnet, testnet, localnet)")
	flags.String("program", "", "pool program id")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
}

func initConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("rpc"); v != "" {
		loaded.Solana.RPC = v
	}
	if v, _ := flags.GetString("network"); v != "" {
		loaded.Solana.Network = v
	}
	if v, _ := flags.GetString("program"); v != "" {
		loaded.Program.ID = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		loaded.Log.Level = v
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	if output != "text" && output != "json" {
		return fmt.Errorf("unsupported output format: %s", output)
	}

	cfg = loaded
	logger = common.NewLogger(cfg.Log)
	slog.SetDefault(logger)
	return nil
}

// printResult writes v as indented JSON when --output json is set, otherwise
// calls text.
func printResult(cmd *cobra.Command, v any, text func() error) error {
	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text()
}
