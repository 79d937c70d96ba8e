package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpamm/internal/solana"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet management commands",
	Long:  `Commands for creating and reading keypair files used as pool payers and initializers.`,
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new wallet",
	Long:  `Generate a new keypair, optionally saving it in Solana CLI format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := solana.NewWallet()
		path, _ := cmd.Flags().GetString("out")
		if path != "" {
			if err := w.SaveToFile(path); err != nil {
				return err
			}
		}

		return printResult(cmd, map[string]string{"public_key": w.String(), "file": path}, func() error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "New wallet generated!")
			fmt.Fprintf(out, "  Public Key:  %s\n", w.PublicKey())
			if path != "" {
				fmt.Fprintf(out, "  Saved to:    %s\n", path)
			} else {
				fmt.Fprintf(out, "  Private Key: %s\n", w.PrivateKey())
			}
			return nil
		})
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show [keypair-file]",
	Short: "Show a wallet",
	Long:  `Show the public key of a keypair file, defaulting to solana.keypair from the config. With --balance the SOL balance is read over RPC.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Solana.Keypair
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no keypair file given and solana.keypair is not configured")
		}

		w, err := solana.WalletFromFile(path)
		if err != nil {
			return err
		}

		result := map[string]any{"public_key": w.String(), "file": path}
		if withBalance, _ := cmd.Flags().GetBool("balance"); withBalance {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Solana.Timeout)*time.Second)
			defer cancel()
			sol, err := solana.NewClient(cfg.Solana.GetRPCEndpoint()).GetBalanceSOL(ctx, w.PublicKey())
			if err != nil {
				return err
			}
			result["balance_sol"] = sol
		}

		return printResult(cmd, result, func() error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Public Key: %s\n", w.PublicKey())
			if sol, ok := result["balance_sol"]; ok {
				fmt.Fprintf(out, "Balance:    %.9f SOL\n", sol)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletNewCmd)
	walletCmd.AddCommand(walletShowCmd)

	walletNewCmd.Flags().String("out", "", "write the keypair to this file")
	walletShowCmd.Flags().Bool("balance", false, "fetch the SOL balance over RPC")
}
