package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-spdi/internal/spdi"
)

var errUpstream = errors.New("upstream lookup failed")

// mockLookup serves canned alleles and VCF fields.
type mockLookup struct {
	mu      sync.Mutex
	alleles map[uint64][]spdi.SPDI
	vcf     map[string]spdi.VCFRecord
	calls   int
}

func (m *mockLookup) ResolveRSID(_ context.Context, id uint64) ([]spdi.SPDI, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	a, ok := m.alleles[id]
	if !ok {
		return nil, fmt.Errorf("rs%d: %w", id, errUpstream)
	}
	return a, nil
}

func (m *mockLookup) ResolveSPDI(_ context.Context, s string) (spdi.VCFRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	r, ok := m.vcf[s]
	if !ok {
		return spdi.VCFRecord{}, fmt.Errorf("%s: %w", s, errUpstream)
	}
	return r, nil
}

func newMockLookup() *mockLookup {
	return &mockLookup{
		alleles: map[uint64][]spdi.SPDI{
			334: {
				spdi.New("NC_000011.10", 5227001, "T", "A"),
				spdi.New("NC_000011.10", 5227001, "T", "C"),
			},
			12: {spdi.New("NC_000001.11", 99, "G", "GA")},
		},
		vcf: map[string]spdi.VCFRecord{
			"NC_000011.10:5227001:T:A": {Chrom: "11", Pos: 5227002, Ref: "T", Alt: "A"},
			"NC_000011.10:5227001:T:C": {Chrom: "11", Pos: 5227002, Ref: "T", Alt: "C"},
		},
	}
}

func TestResolveMany_PartialFailure(t *testing.T) {
	m := newMockLookup()

	results := ResolveMany(context.Background(), m, []uint64{334, 7}, 2)

	require.Len(t, results, 2)

	assert.Equal(t, uint64(334), results[0].RSID)
	require.NoError(t, results[0].Err)
	assert.False(t, results[0].Failed())
	assert.Equal(t, []string{"chr11:5227002:T:A", "chr11:5227002:T:C"}, results[0].Vars())

	assert.Equal(t, uint64(7), results[1].RSID)
	assert.True(t, results[1].Failed())
	assert.ErrorIs(t, results[1].Err, errUpstream)
	assert.Empty(t, results[1].Variants)
}

func TestResolveMany_SPDIFailureFailsOnlyThatID(t *testing.T) {
	m := newMockLookup()

	// rs12's allele has no vcf_fields entry.
	results := ResolveMany(context.Background(), m, []uint64{12, 334}, 4)

	require.Len(t, results, 2)
	assert.True(t, results[0].Failed())
	assert.Contains(t, results[0].Err.Error(), "rs12")
	assert.ErrorIs(t, results[0].Err, errUpstream)
	assert.False(t, results[1].Failed())
	assert.Len(t, results[1].Variants, 2)
}

// blockingLookup fails one allele and blocks every other until canceled.
type blockingLookup struct {
	alleles []spdi.SPDI
	fail    string
}

func (b *blockingLookup) ResolveRSID(context.Context, uint64) ([]spdi.SPDI, error) {
	return b.alleles, nil
}

func (b *blockingLookup) ResolveSPDI(ctx context.Context, s string) (spdi.VCFRecord, error) {
	if s == b.fail {
		return spdi.VCFRecord{}, fmt.Errorf("%s: %w", s, errUpstream)
	}
	<-ctx.Done()
	return spdi.VCFRecord{}, ctx.Err()
}

func TestResolveMany_AlleleFailureCancelsSiblings(t *testing.T) {
	b := &blockingLookup{
		alleles: []spdi.SPDI{
			spdi.New("NC_000011.10", 5227001, "T", "A"),
			spdi.New("NC_000011.10", 5227001, "T", "C"),
			spdi.New("NC_000011.10", 5227001, "T", "G"),
		},
		fail: "NC_000011.10:5227001:T:C",
	}

	results := ResolveMany(context.Background(), b, []uint64{334}, 1)

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, errUpstream)
	assert.NotErrorIs(t, results[0].Err, context.Canceled)
	assert.Contains(t, results[0].Err.Error(), "rs334")
	assert.Empty(t, results[0].Variants)
}

func TestResolveMany_SubmissionOrder(t *testing.T) {
	m := newMockLookup()
	ids := []uint64{9, 334, 8, 334, 7, 6}

	results := ResolveMany(context.Background(), m, ids, 3)

	require.Len(t, results, len(ids))
	for i, r := range results {
		assert.Equal(t, ids[i], r.RSID)
	}
}

func TestResolveMany_Empty(t *testing.T) {
	results := ResolveMany(context.Background(), newMockLookup(), nil, 2)
	assert.Empty(t, results)
	assert.Equal(t, Tally{}, Summarize(results))
}

func TestResolveMany_Canceled(t *testing.T) {
	m := newMockLookup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ResolveMany(ctx, m, []uint64{334, 12}, 2)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, 0, m.calls)
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{RSID: 1},
		{RSID: 2, Err: errUpstream},
		{RSID: 3, Variants: []spdi.VCFRecord{{Chrom: "1", Pos: 1, Ref: "A", Alt: "G"}}},
	}
	assert.Equal(t, Tally{Total: 3, Succeeded: 2, Failed: 1}, Summarize(results))
}
