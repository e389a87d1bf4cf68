package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gostdlib/forkjoin/forkjoin"
	"github.com/gostdlib/forkjoin/tools/forkjoin-cli/internal/report"
)

var sumCmd = &cobra.Command{
	Use:   "sum",
	Short: "Sums the integers in [0, n)",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")
		if err := positive("n", n); err != nil {
			return err
		}
		run, err := rangeSum(cmd.Context(), "sum", n, 1)
		if err != nil {
			return err
		}
		return output(cmd, run)
	},
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Sums i*3 for the integers in [0, n) and shows which worker did what",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")
		if err := positive("n", n); err != nil {
			return err
		}
		run, err := rangeSum(cmd.Context(), "threads", n, 3)
		if err != nil {
			return err
		}
		return output(cmd, run)
	},
}

func init() {
	sumCmd.Flags().IntP("n", "n", 1_000_000, "sum the integers below n")
	threadsCmd.Flags().IntP("n", "n", 1000, "use the integers below n")
	rootCmd.AddCommand(sumCmd, threadsCmd)
}

// rangeSum reduces [0, n) with i*mul on a new Pool.
func rangeSum(ctx context.Context, name string, n, mul int) (report.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := newPool()
	if err != nil {
		return report.Run{}, err
	}
	defer p.Close()

	contrib := &forkjoin.ContributionMap{}
	var result int64
	elapsed, err := timed(func() error {
		var err error
		result, err = forkjoin.Reduce(
			ctx,
			p,
			forkjoin.Range(0, n),
			func(ctx context.Context, i int) (int64, error) { return int64(i) * int64(mul), nil },
			func(a, b int64) int64 { return a + b },
			0,
			options(contrib)...,
		)
		return err
	})
	if err != nil {
		return report.Run{}, err
	}
	return report.New(name, result, elapsed, contrib), nil
}
