package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/clinvar"
	"github.com/inodb/vibe-spdi/internal/output"
)

type normalizeOptions struct {
	output string
	duckdb string
}

func newNormalizeCmd(a *app) *cobra.Command {
	var opts normalizeOptions

	cmd := &cobra.Command{
		Use:   "normalize [flags] <clinvar.txt>",
		Short: "Normalize a ClinVar tabular export",
		Long: `Reshape a ClinVar search-results export (tab-separated, optionally
gzipped) into a fixed 24-column table. Each row's canonical SPDI is
resolved via NCBI into VCF-style locus and allele columns. Rows without a
canonical SPDI are dropped; rows whose SPDI cannot be resolved are kept
with empty variant columns and reported.`,
		Example: `  vibe-spdi normalize clinvar_result.txt
  vibe-spdi normalize -o clinvar.tsv --duckdb clinvar.duckdb clinvar_result.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			return a.runNormalize(cmd.Context(), client, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.duckdb, "duckdb", "", "Also export rows to this DuckDB database")
	return cmd
}

func (a *app) runNormalize(ctx context.Context, resolver clinvar.SPDIResolver, input string, opts normalizeOptions) error {
	r, err := clinvar.NewReader(input)
	if err != nil {
		return err
	}
	rows, err := r.ReadAll()
	r.Close()
	if err != nil {
		return err
	}
	a.logger.Info("normalizing ClinVar rows", zap.Int("rows", len(rows)), zap.Int("workers", a.workers()))

	n := clinvar.NewNormalizer(resolver,
		clinvar.WithWorkers(a.cfg.Workers),
		clinvar.WithLogger(a.logger.Named("clinvar")))
	normalized, report := n.Normalize(ctx, rows)

	w, closeOut, err := createOutput(opts.output)
	if err != nil {
		return err
	}
	cw := output.NewClinVarWriter(w)
	if err := cw.WriteHeader(); err != nil {
		closeOut()
		return err
	}
	for i := range normalized {
		if err := cw.Write(&normalized[i]); err != nil {
			closeOut()
			return err
		}
	}
	if err := cw.Flush(); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if opts.duckdb != "" {
		store, run, err := openExport(opts.duckdb, "normalize", input)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.WriteClinVarRows(run.ID, normalized); err != nil {
			return fmt.Errorf("export rows: %w", err)
		}
		a.logger.Info("exported rows", zap.String("duckdb", opts.duckdb), zap.String("run_id", run.ID))
	}

	a.logger.Info("normalize finished",
		zap.Int("rows", report.Rows),
		zap.Int("dropped", report.Dropped),
		zap.Int("resolved", report.Resolved),
		zap.Int("failed", report.Failed))

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d rows: %w", report.Failed, report.Rows-report.Dropped, errPartialFailure)
	}
	return nil
}
