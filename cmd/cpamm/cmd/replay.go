package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpamm/internal/scenario"
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay a scenario file",
	Long: `Run the mints, users, pools and steps of a scenario file through the pool program.

With the database enabled the ledger is restored from it before the run, every
committed change is persisted and every operation is journaled. The command fails
when a step does not meet its expected outcome.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Load(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		e, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		report, err := scenario.NewRunner(e.exec, logger).Run(ctx, s)
		if err != nil {
			return err
		}

		if err := printResult(cmd, report, func() error {
			return report.WriteText(cmd.OutOrStdout())
		}); err != nil {
			return err
		}
		if failed := report.Failures(); len(failed) > 0 {
			return fmt.Errorf("%d of %d steps did not meet their expectation", len(failed), len(report.Steps))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
