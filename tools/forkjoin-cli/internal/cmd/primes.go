package cmd

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/gostdlib/forkjoin/forkjoin"
	"github.com/gostdlib/forkjoin/tools/forkjoin-cli/internal/report"
)

var primesCmd = &cobra.Command{
	Use:   "primes",
	Short: "Generates probable primes and finds one whose decimal form starts with a prefix",
	Long: `primes generates --count random probable primes of --bits bits and looks for one
whose decimal form starts with --prefix. "first" keeps the match with the lowest index,
"any" returns whichever match it found and stops generating once it has one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		bits, _ := cmd.Flags().GetInt("bits")
		prefix, _ := cmd.Flags().GetString("prefix")
		if err := positive("count", count); err != nil {
			return err
		}
		if bits < 2 {
			return fmt.Errorf("--bits must be > 1, got %d", bits)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		p, err := newPool()
		if err != nil {
			return err
		}
		defer p.Close()

		var runs []report.Run
		for _, anyMatch := range []bool{false, true} {
			run, err := findPrime(ctx, p, count, bits, prefix, anyMatch)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return output(cmd, runs...)
	},
}

func init() {
	primesCmd.Flags().Int("count", 1000, "number of primes to generate")
	primesCmd.Flags().Int("bits", 64, "bit length of the primes")
	primesCmd.Flags().String("prefix", "1", "decimal prefix to look for")
	rootCmd.AddCommand(primesCmd)
}

// candidate is a generated prime, Index is its position in the input.
type candidate struct {
	Index int
	Prime *big.Int
}

func (c candidate) found() bool {
	return c.Prime != nil
}

func (c candidate) String() string {
	if !c.found() {
		return "none"
	}
	return c.Prime.String()
}

// first keeps the left match, so the match with the lowest index wins.
func first(a, b candidate) candidate {
	if a.found() {
		return a
	}
	return b
}

func findPrime(ctx context.Context, p *forkjoin.Pool, count, bits int, prefix string, anyMatch bool) (report.Run, error) {
	var done atomic.Bool
	transform := func(ctx context.Context, i int) (candidate, error) {
		if anyMatch && done.Load() {
			return candidate{}, nil
		}
		prime, err := rand.Prime(rand.Reader, bits)
		if err != nil {
			return candidate{}, err
		}
		if !strings.HasPrefix(prime.String(), prefix) {
			return candidate{}, nil
		}
		done.Store(true)
		return candidate{Index: i, Prime: prime}, nil
	}

	name := "first"
	if anyMatch {
		name = "any"
	}

	contrib := &forkjoin.ContributionMap{}
	var result candidate
	elapsed, err := timed(func() error {
		var err error
		result, err = forkjoin.Reduce(ctx, p, forkjoin.Range(0, count), transform, first, candidate{}, options(contrib)...)
		return err
	})
	if err != nil {
		return report.Run{}, err
	}
	return report.New(name, result, elapsed, contrib), nil
}
