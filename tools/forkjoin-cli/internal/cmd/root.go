// Package cmd holds the commands of forkjoin-cli.
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gostdlib/forkjoin/forkjoin"
	"github.com/gostdlib/forkjoin/tools/forkjoin-cli/internal/report"
)

const poolName = "cli"

var rootCmd = &cobra.Command{
	Use:   "forkjoin-cli",
	Short: "Runs reductions on a forkjoin.Pool",
	Long: `forkjoin-cli runs reductions on a fixed size work stealing pool and reports
the result and how many elements every worker processed.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/forkjoin/config.yaml)")
	rootCmd.PersistentFlags().IntP("workers", "w", 4, "number of workers in the pool")
	rootCmd.PersistentFlags().Int("threshold", 0, "size at or below which input is not split, 0 picks one from the input size")
	rootCmd.PersistentFlags().StringP("format", "f", string(report.Text), "output format: text, json or csv")

	for _, name := range []string{"config", "workers", "threshold", "format"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.config/forkjoin")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FORKJOIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// A missing config file is fine, flags and env are enough.
	_ = viper.ReadInConfig()
}

// newPool creates the Pool commands run their reductions on.
func newPool() (*forkjoin.Pool, error) {
	return forkjoin.New(poolName, viper.GetInt("workers"))
}

// options returns the Reduce() options from the config that record into c.
func options(c *forkjoin.ContributionMap) []forkjoin.Option {
	opts := []forkjoin.Option{forkjoin.WithObserver(c.Observe)}
	if t := viper.GetInt("threshold"); t > 0 {
		opts = append(opts, forkjoin.WithThreshold(t))
	}
	return opts
}

// output writes runs to the command's output in the configured format.
func output(cmd *cobra.Command, runs ...report.Run) error {
	f, err := report.ParseFormat(viper.GetString("format"))
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), f, runs...)
}

// timed runs f and returns how long it took.
func timed(f func() error) (time.Duration, error) {
	start := time.Now()
	err := f()
	return time.Since(start), err
}

func positive(name string, n int) error {
	if n < 1 {
		return fmt.Errorf("--%s must be > 0, got %d", name, n)
	}
	return nil
}
