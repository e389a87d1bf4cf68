package cmd

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/gostdlib/forkjoin/forkjoin"
	"github.com/gostdlib/forkjoin/prim/wait"
	"github.com/gostdlib/forkjoin/tools/forkjoin-cli/internal/report"
	"github.com/gostdlib/forkjoin/tools/forkjoin-cli/internal/words"
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Sums the length of the words in a file, once as a list and once as a set",
	Long: `words reads one word per line from --file ("-" is stdin) and sums the length of
every word, then of every distinct word. The per worker counts are cleared between
the two reductions unless --concurrent runs them at the same time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		concurrent, _ := cmd.Flags().GetBool("concurrent")

		var (
			list []string
			err  error
		)
		switch path {
		case "":
			return errors.New("--file is required")
		case "-":
			list, err = words.Read(os.Stdin)
		default:
			list, err = words.ReadFile(path)
		}
		if err != nil {
			return err
		}
		log.Printf("read %d words", len(list))

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
		if concurrent {
			runs, err = wordsConcurrent(ctx, p, list)
		} else {
			runs, err = wordsSequential(ctx, p, list)
		}
		if err != nil {
			return err
		}
		return output(cmd, runs...)
	},
}

func init() {
	wordsCmd.Flags().String("file", "", `file with one word per line, "-" for stdin`)
	wordsCmd.Flags().Bool("concurrent", false, "run the list and set reductions at the same time")
	rootCmd.AddCommand(wordsCmd)
}

func wordLen(ctx context.Context, s string) (int, error) {
	return len(s), nil
}

func add(a, b int) int {
	return a + b
}

// wordsSequential reduces the list and then the set, reusing one ContributionMap.
func wordsSequential(ctx context.Context, p *forkjoin.Pool, list []string) ([]report.Run, error) {
	contrib := &forkjoin.ContributionMap{}
	runs := make([]report.Run, 0, 2)

	srcs := []struct {
		name string
		src  forkjoin.Source[string]
	}{
		{name: "list", src: forkjoin.Slice(list)},
		{name: "set", src: forkjoin.Set(words.Distinct(list))},
	}
	for _, s := range srcs {
		contrib.Clear()
		var result int
		elapsed, err := timed(func() error {
			var err error
			result, err = forkjoin.Reduce(ctx, p, s.src, wordLen, add, 0, options(contrib)...)
			return err
		})
		if err != nil {
			return nil, err
		}
		runs = append(runs, report.New(s.name, result, elapsed, contrib))
	}
	return runs, nil
}

// wordsConcurrent submits the list and set reductions to p at the same time.
func wordsConcurrent(ctx context.Context, p *forkjoin.Pool, list []string) ([]report.Run, error) {
	srcs := []struct {
		name string
		src  forkjoin.Source[string]
	}{
		{name: "list", src: forkjoin.Slice(list)},
		{name: "set", src: forkjoin.Set(words.Distinct(list))},
	}

	runs := make([]report.Run, len(srcs))
	g := wait.Group{Name: "words"}
	for i, s := range srcs {
		i, s := i, s
		g.Go(ctx, func(ctx context.Context) error {
			contrib := &forkjoin.ContributionMap{}
			var result int
			elapsed, err := timed(func() error {
				var err error
				result, err = forkjoin.Reduce(ctx, p, s.src, wordLen, add, 0, options(contrib)...)
				return err
			})
			if err != nil {
				return err
			}
			runs[i] = report.New(s.name, result, elapsed, contrib)
			return nil
		})
	}
	if err := g.Wait(ctx); err != nil {
		return nil, err
	}
	return runs, nil
}
