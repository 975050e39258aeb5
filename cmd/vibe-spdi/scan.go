package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/output"
	"github.com/inodb/vibe-spdi/internal/refsnp"
	"github.com/inodb/vibe-spdi/internal/snapshot"
)

type scanOptions struct {
	output string
	index  bool
	all    bool
	strict bool
}

func newScanCmd(a *app) *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan [flags] <rsid-file> <snapshot>",
		Short: "Resolve rsIDs to SPDI alleles from a dbSNP JSON snapshot",
		Long: `Scan a dbSNP refsnp JSON snapshot (plain, gzip, bzip2 or zstd; one
record per line) for the rsIDs in the input file.

By default the ids are sorted and matched in a single forward pass,
which requires the snapshot to be sorted by rsID as dbSNP's
per-chromosome files are. Use --index for snapshots in any order, and
--all to emit every record in the snapshot (the rsid-file is ignored).`,
		Example: `  vibe-spdi scan ids.txt refsnp-chr11.json.bz2
  vibe-spdi scan --index -o alleles.tsv ids.txt merged.json.gz
  vibe-spdi scan --all - refsnp-chrMT.json.bz2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.all && opts.index {
				return &usageError{fmt.Errorf("--all and --index are mutually exclusive")}
			}
			var ids []uint64
			if !opts.all {
				var err error
				if ids, err = refsnp.ReadIDFile(args[0]); err != nil {
					return err
				}
			}
			return a.runScan(cmd.Context(), ids, args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.index, "index", false, "Match ids in one full pass without assuming sort order")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Emit every record in the snapshot")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Stop at the first malformed snapshot line")
	return cmd
}

func (a *app) runScan(ctx context.Context, ids []uint64, snapshotPath string, opts scanOptions) error {
	r, err := snapshot.Open(snapshotPath)
	if err != nil {
		return err
	}
	defer r.Close()

	scanner := snapshot.NewScanner(r,
		snapshot.WithAssembly(a.cfg.Assembly),
		snapshot.WithStrict(opts.strict),
		snapshot.WithLogger(a.logger.Named("snapshot")))

	w, closeOut, err := createOutput(opts.output)
	if err != nil {
		return err
	}

	rw := output.NewResultWriter(w)
	counts, err := a.writeScan(ctx, scanner, rw, ids, opts)
	if err != nil {
		closeOut()
		return fmt.Errorf("scan %s: %w", snapshotPath, err)
	}
	if err := rw.Flush(); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	stats := scanner.Stats()
	a.logger.Info("scan finished",
		zap.Int("lines", stats.Lines),
		zap.Int("matched", stats.Matched),
		zap.Int("malformed", stats.Malformed),
		zap.Int("queried", len(ids)),
		zap.Int("not_found", counts.notFound),
		zap.Int("failed", counts.failed))

	if counts.failed > 0 {
		return fmt.Errorf("%d of %d rsIDs: %w", counts.failed, len(ids), errPartialFailure)
	}
	return nil
}

type scanCounts struct {
	notFound int
	failed   int
}

// writeScan runs the scan and writes one row per queried id in input
// order, or one row per snapshot record with --all.
func (a *app) writeScan(ctx context.Context, scanner *snapshot.Scanner, rw *output.ResultWriter, ids []uint64, opts scanOptions) (scanCounts, error) {
	var counts scanCounts
	if err := rw.WriteHeader(); err != nil {
		return counts, err
	}
	if opts.all {
		return counts, scanner.Each(ctx, rw.WriteRecord)
	}

	var found map[uint64]refsnp.Record
	var err error
	if opts.index {
		found, err = scanner.Index(ctx, ids)
	} else {
		found, err = scanner.Scan(ctx, snapshot.SortIDs(ids))
	}
	if err != nil {
		return counts, err
	}

	failed := scanner.Failed()
	for _, id := range ids {
		if rec, ok := found[id]; ok {
			if err := rw.WriteRecord(rec); err != nil {
				return counts, err
			}
			continue
		}
		if ferr, ok := failed[id]; ok {
			counts.failed++
			a.logger.Warn("malformed snapshot record", zap.String("rsid", refsnp.FormatRSID(id)), zap.Error(ferr))
			if err := rw.WriteFailed(id, ferr); err != nil {
				return counts, err
			}
			continue
		}
		counts.notFound++
		if err := rw.WriteNotFound(id); err != nil {
			return counts, err
		}
	}
	return counts, nil
}
