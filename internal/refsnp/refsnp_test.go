package refsnp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-spdi/internal/spdi"
)

func loadRS334(t *testing.T) *RefSNP {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "rs334.json"))
	require.NoError(t, err)
	var r RefSNP
	require.NoError(t, json.Unmarshal(data, &r))
	return &r
}

func TestExtract_RS334(t *testing.T) {
	r := loadRS334(t)
	assert.Equal(t, ID(334), r.ID)

	rec, err := r.Extract(DefaultAssembly)
	require.NoError(t, err)
	assert.Equal(t, uint64(334), rec.RSID)
	assert.Equal(t, "GRCh38.p14", rec.AssemblyName)

	// The "=" reference allele is excluded, the three substitutions kept.
	require.Len(t, rec.SPDIs, 3)
	assert.Equal(t, "NC_000011.10:5227001:T:A", rec.SPDIs[0].String())
	assert.Equal(t, "NC_000011.10:5227001:T:C", rec.SPDIs[1].String())
	assert.Equal(t, "NC_000011.10:5227001:T:G", rec.SPDIs[2].String())
}

func TestExtract_AssemblyMismatch(t *testing.T) {
	r := loadRS334(t)

	rec, err := r.Extract("GRCh37")
	require.NoError(t, err)
	assert.Equal(t, "GRCh38.p14", rec.AssemblyName)
	assert.Empty(t, rec.SPDIs)
}

func TestExtract_OnlyReferenceAllele(t *testing.T) {
	line := `{"refsnp_id":"42","primary_snapshot_data":{"placements_with_allele":[
		{"seq_id":"NC_000001.11","placement_annot":{"seq_id_traits_by_assembly":[{"assembly_name":"GRCh38.p14"}]},
		 "alleles":[{"allele":{"spdi":{"seq_id":"NC_000001.11","position":10,"deleted_sequence":"A","inserted_sequence":"A"}},"hgvs":"NC_000001.11:g.11="}]}]}}`
	var r RefSNP
	require.NoError(t, json.Unmarshal([]byte(line), &r))

	rec, err := r.Extract(DefaultAssembly)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), rec.RSID)
	assert.Empty(t, rec.SPDIs)
}

func TestExtract_Malformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing id", `{"primary_snapshot_data":{"placements_with_allele":[]}}`},
		{"missing snapshot", `{"refsnp_id":"1"}`},
		{"no placements", `{"refsnp_id":"1","primary_snapshot_data":{"placements_with_allele":[]}}`},
		{"no assembly", `{"refsnp_id":"1","primary_snapshot_data":{"placements_with_allele":[{"placement_annot":{"seq_id_traits_by_assembly":[]}}]}}`},
		{"incomplete spdi", `{"refsnp_id":"1","primary_snapshot_data":{"placements_with_allele":[
			{"placement_annot":{"seq_id_traits_by_assembly":[{"assembly_name":"GRCh38.p14"}]},
			 "alleles":[{"allele":{"spdi":{"seq_id":"NC_000001.11","deleted_sequence":"A","inserted_sequence":"G"}},"hgvs":"NC_000001.11:g.11A>G"}]}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r RefSNP
			require.NoError(t, json.Unmarshal([]byte(tt.json), &r))
			_, err := r.Extract(DefaultAssembly)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var r RefSNP
	require.NoError(t, json.Unmarshal([]byte(`{"refsnp_id":"268"}`), &r))
	assert.Equal(t, ID(268), r.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"refsnp_id":7}`), &r))
	assert.Equal(t, ID(7), r.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"refsnp_id":"abc"}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"refsnp_id":null}`), &r))
}

func TestExtract_ReturnsSPDIValues(t *testing.T) {
	r := loadRS334(t)
	rec, err := r.Extract(DefaultAssembly)
	require.NoError(t, err)
	assert.Equal(t, spdi.New("NC_000011.10", 5227001, "T", "A"), rec.SPDIs[0])
}

func TestParseRSID(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"rs334", 334},
		{"334", 334},
		{"  rs121913529 ", 121913529},
		{"RS7412", 7412},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRSID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "rs", "rs0", "rsabc", "rs-1"} {
		_, err := ParseRSID(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatRSID(t *testing.T) {
	assert.Equal(t, "rs334", FormatRSID(334))
}

func TestReadIDs(t *testing.T) {
	input := "rs334\n\n# comment\nrs7412\n429358\n"
	ids, err := ReadIDs(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []uint64{334, 7412, 429358}, ids)
}

func TestReadIDs_Invalid(t *testing.T) {
	_, err := ReadIDs(strings.NewReader("rs334\nnot-an-id\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadIDFile_NotFound(t *testing.T) {
	_, err := ReadIDFile("/nonexistent/ids.txt")
	assert.Error(t, err)
}
