package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpamm/internal/instruction"
)

var pdaCmd = &cobra.Command{
	Use:   "pda",
	Short: "Derive pool addresses",
	Long:  `Derive the config, share mint and vault addresses of the pool identified by a seed and its two mints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		programID, err := cfg.Program.PublicKey()
		if err != nil {
			return err
		}
		seed, _ := cmd.Flags().GetUint64("seed")
		mintX, err := keyFlag(cmd, "mint-x")
		if err != nil {
			return err
		}
		mintY, err := keyFlag(cmd, "mint-y")
		if err != nil {
			return err
		}

		addrs, err := instruction.DerivePool(programID, seed, mintX, mintY)
		if err != nil {
			return err
		}
		return printResult(cmd, addrs, func() error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Program:    %s\n", programID)
			fmt.Fprintf(out, "Config:     %s (bump %d)\n", addrs.Config, addrs.CustodyBump)
			fmt.Fprintf(out, "Share Mint: %s (bump %d)\n", addrs.ShareMint, addrs.ShareBump)
			fmt.Fprintf(out, "Vault X:    %s\n", addrs.VaultX)
			fmt.Fprintf(out, "Vault Y:    %s\n", addrs.VaultY)
			return nil
		})
	},
}

// keyFlag parses a required base58 public key flag.
func keyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
	}
	key, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return key, nil
}

func init() {
	rootCmd.AddCommand(pdaCmd)
	pdaCmd.Flags().Uint64("seed", 0, "pool seed")
	pdaCmd.Flags().String("mint-x", "", "mint of asset x")
	pdaCmd.Flags().String("mint-y", "", "mint of asset y")
}
