// Command neuroanalyze runs the source-space spectral analysis pipeline on
// a YAML bundle and prints the named results as a table or as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-neuro/pipeline"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		asJSON  bool
		verbose bool
		workers int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "neuroanalyze <bundle.yaml>",
		Short: "Source-space band power and connectivity analysis",
		Long: `Neuroanalyze projects a multi-trial sensor recording into source
space through a leadfield operator, estimates per-region band power with
Welch's method, and summarizes imaginary-coherence connectivity for named
region networks.

The bundle file carries the recording, the operator, the atlas, the
networks, and the analysis options in one YAML document.`,
		Version:      Version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], asJSON, verbose, workers, timeout)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log analysis progress to stderr")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = bundle setting or 1)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort after this duration, keeping partial results")

	return cmd
}

func run(cmd *cobra.Command, path string, asJSON, verbose bool, workers int, timeout time.Duration) error {
	bundle, err := LoadBundle(path)
	if err != nil {
		return err
	}

	rec, op, atlas, networks, cfg, err := bundle.Build()
	if err != nil {
		return err
	}

	if workers > 0 {
		cfg.Workers = workers
	}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		cfg.Logger = logger
	}

	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := pipeline.Run(ctx, rec, op, atlas, networks, cfg)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(cmd, res)
	}
	return printTable(cmd, res)
}

func printJSON(cmd *cobra.Command, res *pipeline.ResultSet) error {
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}

func printTable(cmd *cobra.Command, res *pipeline.ResultSet) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVALUES")
	for _, name := range res.Names() {
		fmt.Fprintf(w, "%s\t%s\n", name, formatVector(res.Values[name].Data))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	for _, d := range res.Diagnostics {
		fmt.Fprintf(errOut, "warning: %s: %s: %s\n", d.Kind, d.Subject, d.Message)
	}
	if res.Incomplete {
		fmt.Fprintln(errOut, "warning: analysis incomplete, partial results shown")
	}

	return nil
}

func formatVector(data []float64) string {
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return strings.Join(parts, ", ")
}
