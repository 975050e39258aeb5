package resolve

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-spdi/internal/spdi"
)

// Lookup is the remote resolver used for each rsID.
type Lookup interface {
	ResolveRSID(ctx context.Context, rsid uint64) ([]spdi.SPDI, error)
	ResolveSPDI(ctx context.Context, s string) (spdi.VCFRecord, error)
}

// Result is the outcome of resolving one rsID. Exactly one of Variants
// and Err is meaningful.
type Result struct {
	RSID     uint64
	Variants []spdi.VCFRecord
	Err      error
}

// Failed reports whether the rsID could not be resolved.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Vars returns the variants in "chr{chrom}:{pos}:{ref}:{alt}" form.
func (r Result) Vars() []string {
	out := make([]string, 0, len(r.Variants))
	for _, v := range r.Variants {
		s, _ := spdi.Encode(v, spdi.Var)
		out = append(out, s)
	}
	return out
}

// ResolveMany resolves every rsID to VCF-style variants on a pool of
// workers. Results are returned in the order of ids. A failed id is
// reported in its own Result and does not affect the others.
func ResolveMany(ctx context.Context, lookup Lookup, ids []uint64, workers int) []Result {
	work := Map(ctx, ids, workers, func(ctx context.Context, id uint64) ([]spdi.VCFRecord, error) {
		return resolveOne(ctx, lookup, id)
	})

	results := make([]Result, len(work))
	for i, w := range work {
		results[i] = Result{RSID: w.Input, Variants: w.Output, Err: w.Err}
	}
	return results
}

// resolveOne looks up an rsID's alleles, then converts each to VCF fields.
// The conversions run concurrently; the first failure cancels the rest.
func resolveOne(ctx context.Context, lookup Lookup, id uint64) ([]spdi.VCFRecord, error) {
	alleles, err := lookup.ResolveRSID(ctx, id)
	if err != nil {
		return nil, err
	}

	variants := make([]spdi.VCFRecord, len(alleles))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range alleles {
		g.Go(func() error {
			rec, err := lookup.ResolveSPDI(gctx, a.String())
			if err != nil {
				return fmt.Errorf("rs%d: %w", id, err)
			}
			variants[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return variants, nil
}

// Tally counts batch outcomes.
type Tally struct {
	Total     int
	Succeeded int
	Failed    int
}

// Summarize tallies a batch of results.
func Summarize(results []Result) Tally {
	t := Tally{Total: len(results)}
	for _, r := range results {
		if r.Failed() {
			t.Failed++
		} else {
			t.Succeeded++
		}
	}
	return t
}
