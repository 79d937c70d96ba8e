package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpamm/internal/account"
	"github.com/lugondev/go-cpamm/internal/program"
	rpcclient "github.com/lugondev/go-cpamm/internal/solana"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// Inspection describes one account and, for pool configs, the pool behind it.
type Inspection struct {
	Address  string             `json:"address"`
	Kind     account.Kind       `json:"kind"`
	Owner    string             `json:"owner"`
	Lamports uint64             `json:"lamports"`
	Data     any                `json:"data,omitempty"`
	Pool     *program.PoolState `json:"pool,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <address>",
	Short: "Inspect a pool, mint or token account",
	Long: `Decode the account at address. Pool configs are expanded with their reserves
and share supply.

--source rpc reads from the configured Solana RPC endpoint; --source local reads
the ledger persisted in the configured database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		programID, err := cfg.Program.PublicKey()
		if err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		var ins *Inspection
		switch source {
		case "rpc":
			ins, err = inspectRemote(cmd.Context(), programID, key)
		case "local":
			ins, err = inspectLocal(cmd.Context(), programID, key)
		default:
			return fmt.Errorf("--source must be rpc or local, got %q", source)
		}
		if err != nil {
			return err
		}

		return printResult(cmd, ins, func() error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Address:  %s\n", ins.Address)
			fmt.Fprintf(out, "Kind:     %s\n", ins.Kind)
			fmt.Fprintf(out, "Owner:    %s\n", ins.Owner)
			fmt.Fprintf(out, "Lamports: %d\n", ins.Lamports)
			if p := ins.Pool; p != nil {
				fmt.Fprintf(out, "State:    %s\n", p.Record.State)
				fmt.Fprintf(out, "Fee:      %d bps\n", p.Record.FeeBps)
				fmt.Fprintf(out, "Mint X:   %s\n", p.Record.MintX)
				fmt.Fprintf(out, "Mint Y:   %s\n", p.Record.MintY)
				fmt.Fprintf(out, "Reserves: %d / %d\n", p.ReserveX, p.ReserveY)
				fmt.Fprintf(out, "Supply:   %d\n", p.Supply)
				return nil
			}
			data, err := json.MarshalIndent(ins.Data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Data:     %s\n", data)
			return nil
		})
	},
}

func inspectRemote(ctx context.Context, programID, key solana.PublicKey) (*Inspection, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Solana.Timeout)*time.Second)
	defer cancel()

	client := rpcclient.NewClient(cfg.Solana.GetRPCEndpoint())
	acc, err := client.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	ins, err := describe(programID, key, acc)
	if err != nil {
		return nil, err
	}
	if ins.Kind == account.KindPool {
		if ins.Pool, err = client.FetchPool(ctx, programID, key); err != nil {
			return nil, err
		}
	}
	return ins, nil
}

func inspectLocal(ctx context.Context, programID, key solana.PublicKey) (*Inspection, error) {
	if err := requireDatabase(); err != nil {
		return nil, err
	}
	e, err := openEngine(ctx)
	if err != nil {
		return nil, err
	}
	defer e.Close(ctx)

	acc, ok := e.ledger.Account(key)
	if !ok {
		return nil, fmt.Errorf("account %s not found", key)
	}
	ins, err := describe(programID, key, acc)
	if err != nil {
		return nil, err
	}
	if ins.Kind == account.KindPool {
		if ins.Pool, err = program.LoadPoolState(e.ledger, programID, key); err != nil {
			return nil, err
		}
	}
	return ins, nil
}

func describe(programID, key solana.PublicKey, acc *types.Account) (*Inspection, error) {
	decoded := account.NewDecoder(programID).DecodeAccount(acc)
	if decoded == nil {
		return nil, fmt.Errorf("account %s (owner %s, %d bytes) is not a pool, mint or token account", key, acc.Owner, len(acc.Data))
	}
	return &Inspection{
		Address:  key.String(),
		Kind:     decoded.Kind,
		Owner:    decoded.Owner.String(),
		Lamports: decoded.Lamports,
		Data:     decoded.Data,
	}, nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("source", "rpc", "where to read the account from (rpc or local)")
}
