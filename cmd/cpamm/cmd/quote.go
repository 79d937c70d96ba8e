package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpamm/internal/curve"
)

// SwapQuote is the result of quote swap.
type SwapQuote struct {
	Side        string `json:"side"`
	AmountIn    uint64 `json:"amount_in"`
	AmountOut   uint64 `json:"amount_out"`
	FeeBps      uint16 `json:"fee_bps"`
	PriceBefore uint64 `json:"price_before"`
	PriceAfter  uint64 `json:"price_after"`
}

// LiquidityQuote is the result of quote deposit and quote withdraw.
type LiquidityQuote struct {
	Shares  uint64 `json:"shares"`
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote pool operations",
	Long:  `Compute swap, deposit and withdraw amounts for given reserves without touching a ledger. Prices are y per x scaled by 1e6.`,
}

var quoteSwapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Quote a swap",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		x, _ := f.GetUint64("reserve-x")
		y, _ := f.GetUint64("reserve-y")
		amount, _ := f.GetUint64("amount")
		feeBps, _ := f.GetUint16("fee-bps")
		side, _ := f.GetString("side")

		var (
			amountOut uint64
			err       error
		)
		switch side {
		case "x":
			amountOut, err = curve.SwapOutput(x, y, amount, feeBps)
		case "y":
			amountOut, err = curve.SwapOutputYToX(x, y, amount, feeBps)
		default:
			return fmt.Errorf("--side must be x or y, got %q", side)
		}
		if err != nil {
			return err
		}

		q := SwapQuote{Side: side, AmountIn: amount, AmountOut: amountOut, FeeBps: feeBps}
		if q.PriceBefore, err = curve.SpotPrice(x, y); err != nil {
			return err
		}
		newX, newY := x+amount, y-amountOut
		if side == "y" {
			newX, newY = x-amountOut, y+amount
		}
		if q.PriceAfter, err = curve.SpotPrice(newX, newY); err != nil {
			return err
		}

		return printResult(cmd, q, func() error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "In:           %d (%s)\n", q.AmountIn, q.Side)
			fmt.Fprintf(out, "Out:          %d\n", q.AmountOut)
			fmt.Fprintf(out, "Fee:          %d bps\n", q.FeeBps)
			fmt.Fprintf(out, "Price before: %d\n", q.PriceBefore)
			fmt.Fprintf(out, "Price after:  %d\n", q.PriceAfter)
			return nil
		})
	},
}

var quoteDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Quote a deposit",
	Long:  `Quote the amounts needed to mint --shares. For an empty pool (--supply 0) the first deposit of --reserve-x and --reserve-y is quoted instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		x, _ := f.GetUint64("reserve-x")
		y, _ := f.GetUint64("reserve-y")
		supply, _ := f.GetUint64("supply")
		shares, _ := f.GetUint64("shares")

		var (
			q   LiquidityQuote
			err error
		)
		if supply == 0 {
			q.AmountX, q.AmountY = x, y
			q.Shares, err = curve.InitialShares(x, y)
		} else {
			q.Shares = shares
			q.AmountX, q.AmountY, err = curve.DepositAmounts(x, y, supply, shares)
		}
		if err != nil {
			return err
		}
		return printLiquidity(cmd, "Deposit", q)
	},
}

var quoteWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Quote a withdrawal",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		x, _ := f.GetUint64("reserve-x")
		y, _ := f.GetUint64("reserve-y")
		supply, _ := f.GetUint64("supply")
		shares, _ := f.GetUint64("shares")

		q := LiquidityQuote{Shares: shares}
		var err error
		if shares == supply {
			q.AmountX, q.AmountY = x, y
		} else if q.AmountX, q.AmountY, err = curve.WithdrawAmounts(x, y, supply, shares); err != nil {
			return err
		}
		return printLiquidity(cmd, "Withdraw", q)
	},
}

func printLiquidity(cmd *cobra.Command, label string, q LiquidityQuote) error {
	return printResult(cmd, q, func() error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s shares: %d\n", label, q.Shares)
		fmt.Fprintf(out, "Amount X:   %d\n", q.AmountX)
		fmt.Fprintf(out, "Amount Y:   %d\n", q.AmountY)
		return nil
	})
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteSwapCmd, quoteDepositCmd, quoteWithdrawCmd)

	for _, c := range []*cobra.Command{quoteSwapCmd, quoteDepositCmd, quoteWithdrawCmd} {
		c.Flags().Uint64("reserve-x", 0, "pool reserve of x")
		c.Flags().Uint64("reserve-y", 0, "pool reserve of y")
	}
	quoteSwapCmd.Flags().Uint64("amount", 0, "input amount")
	quoteSwapCmd.Flags().Uint16("fee-bps", 30, "pool fee in basis points")
	quoteSwapCmd.Flags().String("side", "x", "input asset (x or y)")

	for _, c := range []*cobra.Command{quoteDepositCmd, quoteWithdrawCmd} {
		c.Flags().Uint64("supply", 0, "current share supply")
		c.Flags().Uint64("shares", 0, "shares to mint or burn")
	}
}
