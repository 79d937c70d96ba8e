package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/config"
	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestQuoteSwap(t *testing.T) {
	out, err := run(t, "quote", "swap", "-o", "json",
		"--reserve-x", "1000000", "--reserve-y", "2000000", "--amount", "100000", "--fee-bps", "30", "--side", "x")
	if err != nil {
		t.Fatalf("quote swap error: %v\n%s", err, out)
	}
	var q SwapQuote
	if err := json.Unmarshal([]byte(out), &q); err != nil {
		t.Fatalf("Unmarshal() error: %v\n%s", err, out)
	}
	if q.AmountOut != 181_322 || q.PriceBefore != 2_000_000 {
		t.Errorf("quote = %+v", q)
	}
	if q.PriceAfter >= q.PriceBefore {
		t.Errorf("price after %d should be below %d", q.PriceAfter, q.PriceBefore)
	}
}

func TestQuoteDeposit(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want LiquidityQuote
	}{
		{"first deposit", []string{"--reserve-x", "1000000", "--reserve-y", "2000000", "--supply", "0"},
			LiquidityQuote{Shares: 2_000_000, AmountX: 1_000_000, AmountY: 2_000_000}},
		{"proportional", []string{"--reserve-x", "1000", "--reserve-y", "2000", "--supply", "5000", "--shares", "500"},
			LiquidityQuote{Shares: 500, AmountX: 100, AmountY: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"quote", "deposit", "-o", "json"}, tt.args...)...)
			if err != nil {
				t.Fatalf("quote deposit error: %v\n%s", err, out)
			}
			var q LiquidityQuote
			if err := json.Unmarshal([]byte(out), &q); err != nil {
				t.Fatalf("Unmarshal() error: %v\n%s", err, out)
			}
			if q != tt.want {
				t.Errorf("quote = %+v, want %+v", q, tt.want)
			}
		})
	}
}

func TestQuoteWithdrawMoreThanSupply(t *testing.T) {
	if _, err := run(t, "quote", "withdraw", "-o", "text",
		"--reserve-x", "1000", "--reserve-y", "2000", "--supply", "5000", "--shares", "5001"); err == nil {
		t.Error("quote withdraw should fail when burning more than the supply")
	}
}

func TestPDA(t *testing.T) {
	mintX := solana.NewWallet().PublicKey()
	mintY := solana.NewWallet().PublicKey()
	out, err := run(t, "pda", "-o", "json", "--seed", "3", "--mint-x", mintX.String(), "--mint-y", mintY.String())
	if err != nil {
		t.Fatalf("pda error: %v\n%s", err, out)
	}

	var got instruction.PoolAddresses
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Unmarshal() error: %v\n%s", err, out)
	}
	want, err := instruction.DerivePool(solana.MustPublicKeyFromBase58(config.DefaultProgramID), 3, mintX, mintY)
	if err != nil {
		t.Fatalf("DerivePool() error: %v", err)
	}
	if got != *want {
		t.Errorf("pda = %+v, want %+v", got, *want)
	}
}

func TestReplay(t *testing.T) {
	path, err := filepath.Abs("../../../internal/scenario/testdata/basic.yaml")
	if err != nil {
		t.Fatalf("Abs() error: %v", err)
	}
	out, err := run(t, "replay", "-o", "text", path)
	if err != nil {
		t.Fatalf("replay error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "in=100000 out=181322") {
		t.Errorf("report missing swap:\n%s", out)
	}
}

func TestHistoryNeedsDatabase(t *testing.T) {
	if _, err := run(t, "history", "-o", "text"); err == nil || !strings.Contains(err.Error(), "database is disabled") {
		t.Errorf("history error = %v", err)
	}
}

func TestHistoryRejectsUnknownTag(t *testing.T) {
	_, err := run(t, "history", "-o", "text", "--tag", "borrow")
	if err == nil || !strings.Contains(err.Error(), `unknown instruction "borrow"`) {
		t.Errorf("history error = %v", err)
	}
	if err := historyCmd.Flags().Set("tag", ""); err != nil {
		t.Fatalf("reset --tag: %v", err)
	}
}

func TestFilterByTag(t *testing.T) {
	ops := []*storage.OperationModel{
		{ID: "1", Tag: "swap"},
		{ID: "2", Tag: "deposit"},
		{ID: "3", Tag: "swap"},
	}
	got := filterByTag(ops, instruction.TagSwap)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("filterByTag() = %+v", got)
	}
	if len(ops) != 3 || ops[1].ID != "2" {
		t.Errorf("filterByTag() modified its input: %+v", ops)
	}
	if got := filterByTag(ops, instruction.TagWithdraw); len(got) != 0 {
		t.Errorf("filterByTag(withdraw) = %+v", got)
	}
}

func TestRejectsUnknownOutput(t *testing.T) {
	if _, err := run(t, "version", "-o", "xml"); err == nil {
		t.Error("unknown output format should fail")
	}
}
