package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled operations",
	Long: `List operations recorded in the database journal, newest first, optionally for one pool.
--tag keeps only one instruction (initialize, deposit, withdraw or swap) from the fetched page.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		tagName, _ := f.GetString("tag")
		var tag *instruction.Tag
		if tagName != "" {
			t, err := instruction.ParseTag(tagName)
			if err != nil {
				return err
			}
			tag = &t
		}
		if err := requireDatabase(); err != nil {
			return err
		}
		pool, _ := f.GetString("pool")
		limit, _ := f.GetInt("limit")
		offset, _ := f.GetInt("offset")

		ctx := cmd.Context()
		repo, conn, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		var ops []*storage.OperationModel
		if pool != "" {
			ops, err = repo.Operations().FindByPool(ctx, pool, limit, offset)
		} else {
			ops, err = repo.Operations().FindRecent(ctx, limit)
		}
		if err != nil {
			return err
		}
		if tag != nil {
			ops = filterByTag(ops, *tag)
		}

		return printResult(cmd, ops, func() error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSLOT\tTAG\tPOOL\tUSER\tRESULT\tAMOUNTS")
			for _, op := range ops {
				result := "ok"
				if !op.Success {
					result = op.ErrorCode
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
					op.CreatedAt.Format("2006-01-02 15:04:05"), op.Slot, op.Tag,
					short(op.Pool), short(op.User), result, amounts(op))
			}
			return tw.Flush()
		})
	},
}

func filterByTag(ops []*storage.OperationModel, tag instruction.Tag) []*storage.OperationModel {
	kept := ops[:0:0]
	for _, op := range ops {
		if op.Tag == tag.String() {
			kept = append(kept, op)
		}
	}
	return kept
}

func amounts(op *storage.OperationModel) string {
	if !op.Success {
		return ""
	}
	switch op.Tag {
	case "swap":
		return fmt.Sprintf("in=%d out=%d", op.AmountIn, op.AmountOut)
	case "deposit", "withdraw":
		return fmt.Sprintf("x=%d y=%d shares=%d", op.AmountX, op.AmountY, op.Shares)
	}
	return ""
}

// short abbreviates a base58 key for tables.
func short(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:5] + ".." + key[len(key)-5:]
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("pool", "", "pool config address")
	historyCmd.Flags().String("tag", "", "only show this instruction")
	historyCmd.Flags().Int("limit", 20, "maximum number of operations")
	historyCmd.Flags().Int("offset", 0, "operations to skip (with --pool)")
}
