// Command coldb runs the storage-experiment harness against a JSON
// configuration file, spec.md §6: "Run as a standalone CLI taking one
// positional argument (path to a JSON config file) ... exit code 0 on
// success, 1 on any error."
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fenwickdb/coldb/config"
	"github.com/fenwickdb/coldb/harness"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coldb <config.json>",
		Short: "Run the storage-page/index experiment harness against a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), args[0])
		},
		SilenceUsage: true,
	}
	return cmd
}

func run(stdout io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	driver, err := harness.NewDriver(cfg)
	if err != nil {
		return err
	}
	summaries, err := driver.Run()
	if err != nil {
		return err
	}
	harness.Report(stdout, summaries)
	return nil
}
