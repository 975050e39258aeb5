package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/output"
	"github.com/inodb/vibe-spdi/internal/resolve"
	"github.com/inodb/vibe-spdi/internal/spdi"
)

func newSPDICmd(a *app) *cobra.Command {
	var kindName string

	cmd := &cobra.Command{
		Use:   "spdi [flags] <spdi>...",
		Short: "Convert SPDI alleles to VCF-style notation",
		Example: `  vibe-spdi spdi NC_000011.10:5227001:T:A
  vibe-spdi spdi --kind locus NC_000011.10:5227001:T:A`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := spdi.ParseOutputKind(kindName)
			if err != nil {
				return &usageError{err}
			}
			for _, s := range args {
				if _, err := spdi.Parse(s); err != nil {
					return &usageError{err}
				}
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			return a.runSPDI(cmd.Context(), client, args, kind)
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", string(spdi.Var), "Output notation: locus, allele_change or var")
	return cmd
}

// runSPDI resolves each SPDI and prints "<spdi>\t<value>" lines in input order.
func (a *app) runSPDI(ctx context.Context, lookup resolve.Lookup, spdis []string, kind spdi.OutputKind) error {
	results := resolve.Map(ctx, spdis, a.cfg.Workers, lookup.ResolveSPDI)

	tw := output.NewTabWriter(stdout, []string{"spdi", string(kind)})
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			a.logger.Error("resolve SPDI failed", zap.String("spdi", r.Input), zap.Error(r.Err))
			continue
		}
		value, err := spdi.Encode(r.Output, kind)
		if err != nil {
			return err
		}
		if err := tw.WriteRow([]string{r.Input, value}); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d SPDIs: %w", failed, len(spdis), errPartialFailure)
	}
	return nil
}
