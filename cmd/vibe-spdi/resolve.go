package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/output"
	"github.com/inodb/vibe-spdi/internal/refsnp"
	"github.com/inodb/vibe-spdi/internal/resolve"
)

type resolveOptions struct {
	output string
	duckdb string
}

func newResolveCmd(a *app) *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve [flags] <rsid-file>",
		Short: "Resolve rsIDs to VCF-style variants via NCBI",
		Long: `Resolve each rsID in the input file (one per line, "rs" prefix optional)
to its alleles on the configured assembly, then convert every allele to
chr:pos:ref:alt notation. Lookups run concurrently under a global rate
limit. An rsID that cannot be resolved is reported as failed without
stopping the batch. Use '-' to read ids from stdin.`,
		Example: `  vibe-spdi resolve ids.txt
  vibe-spdi resolve -o variants.tsv --duckdb variants.duckdb ids.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := refsnp.ReadIDFile(args[0])
			if err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			return a.runResolve(cmd.Context(), client, args[0], ids, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.duckdb, "duckdb", "", "Also export results to this DuckDB database")
	return cmd
}

func (a *app) runResolve(ctx context.Context, lookup resolve.Lookup, input string, ids []uint64, opts resolveOptions) error {
	a.logger.Info("resolving rsIDs", zap.Int("ids", len(ids)), zap.Int("workers", a.workers()))

	results := resolve.ResolveMany(ctx, lookup, ids, a.cfg.Workers)

	w, closeOut, err := createOutput(opts.output)
	if err != nil {
		return err
	}
	rw := output.NewResultWriter(w)
	if err := rw.WriteHeader(); err != nil {
		closeOut()
		return err
	}
	for _, r := range results {
		if err := rw.WriteResolved(r); err != nil {
			closeOut()
			return err
		}
	}
	if err := rw.Flush(); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if opts.duckdb != "" {
		store, run, err := openExport(opts.duckdb, "resolve", input)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.WriteResolveResults(run.ID, results); err != nil {
			return fmt.Errorf("export results: %w", err)
		}
		a.logger.Info("exported results", zap.String("duckdb", opts.duckdb), zap.String("run_id", run.ID))
	}

	tally := resolve.Summarize(results)
	for _, r := range results {
		if r.Failed() {
			a.logger.Warn("rsID failed", zap.String("rsid", refsnp.FormatRSID(r.RSID)), zap.Error(r.Err))
		}
	}
	a.logger.Info("resolve finished",
		zap.Int("total", tally.Total),
		zap.Int("succeeded", tally.Succeeded),
		zap.Int("failed", tally.Failed))

	if tally.Failed > 0 {
		return fmt.Errorf("%d of %d rsIDs: %w", tally.Failed, tally.Total, errPartialFailure)
	}
	return nil
}

// workers returns the effective pool size.
func (a *app) workers() int {
	if a.cfg.Workers > 0 {
		return a.cfg.Workers
	}
	return resolve.DefaultWorkers()
}
