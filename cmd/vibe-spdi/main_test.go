package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-spdi/internal/duckdb"
	"github.com/inodb/vibe-spdi/internal/spdi"
)

// setupCLI isolates viper and the home directory and captures stdout.
func setupCLI(t *testing.T) *bytes.Buffer {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIBE_SPDI_RATE_CALLS", "1000")
	t.Setenv("VIBE_SPDI_NCBI_RETRY_INTERVAL", "1ms")

	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

// fakeNCBI answers vcf_fields for any well-formed SPDI by shifting the
// position to 1-based, and serves the rs334 record.
func fakeNCBI(t *testing.T) *httptest.Server {
	t.Helper()
	rs334, err := os.ReadFile(filepath.Join("..", "..", "internal", "refsnp", "testdata", "rs334.json"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/spdi/", func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/spdi/"), "/vcf_fields")
		s, err := spdi.Parse(raw)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"Invalid SPDI"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"chrom": s.SeqID, "pos": s.Position + 1, "ref": s.Deleted, "alt": s.Inserted},
		})
	})
	mux.HandleFunc("/refsnp/334", func(w http.ResponseWriter, r *http.Request) {
		w.Write(rs334)
	})
	mux.HandleFunc("/refsnp/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"RefSNP not found"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSPDICommand(t *testing.T) {
	out := setupCLI(t)
	srv := fakeNCBI(t)

	code := run([]string{"spdi", "--base-url", srv.URL, "--kind", "locus",
		"NC_000011.10:5227001:T:A", "NC_000017.11:43124027:ACT:A"})

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t,
		"spdi\tlocus\n"+
			"NC_000011.10:5227001:T:A\tchr11:5227002\n"+
			"NC_000017.11:43124027:ACT:A\tchr17:43124028\n",
		out.String())
}

func TestSPDICommand_DefaultKindIsVar(t *testing.T) {
	out := setupCLI(t)
	srv := fakeNCBI(t)

	code := run([]string{"spdi", "--base-url", srv.URL, "NC_000001.11:99:G:C"})

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "NC_000001.11:99:G:C\tchr1:100:G:C\n")
}

func TestSPDICommand_UsageErrors(t *testing.T) {
	setupCLI(t)

	assert.Equal(t, ExitUsage, run([]string{"spdi", "--kind", "bogus_kind", "NC_000001.11:99:G:C"}))
	assert.Equal(t, ExitUsage, run([]string{"spdi", "not-an-spdi"}))
	assert.Equal(t, ExitUsage, run([]string{"spdi", "--no-such-flag", "NC_000001.11:99:G:C"}))
}

func TestResolveCommand_PartialFailure(t *testing.T) {
	out := setupCLI(t)
	srv := fakeNCBI(t)
	ids := writeFile(t, "ids.txt", "# query\nrs334\n\nrs999\n")
	db := filepath.Join(t.TempDir(), "out.duckdb")

	code := run([]string{"resolve", "--base-url", srv.URL, "--workers", "2", "--duckdb", db, ids})

	assert.Equal(t, ExitPartial, code, "a failed rsID is reported, not fatal")

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "rsid\tstatus\talleles\terror", lines[0])
	assert.Equal(t, "rs334\tok\tchr11:5227002:T:A,chr11:5227002:T:C,chr11:5227002:T:G\t", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "rs999\tfailed\t\t"), lines[2])
	assert.Contains(t, lines[2], "RefSNP not found")

	store, err := duckdb.Open(db)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "resolve", runs[0].Command)

	rows, err := store.RSIDVariants(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestResolveCommand_OutputFile(t *testing.T) {
	out := setupCLI(t)
	srv := fakeNCBI(t)
	ids := writeFile(t, "ids.txt", "334\n")
	dest := filepath.Join(t.TempDir(), "variants.tsv")

	code := run([]string{"resolve", "--base-url", srv.URL, "-o", dest, ids})

	assert.Equal(t, ExitSuccess, code)
	assert.Empty(t, out.String())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rs334\tok\t")
}

func TestResolveCommand_BadIDFile(t *testing.T) {
	setupCLI(t)
	ids := writeFile(t, "ids.txt", "rs334\nrsX\n")

	assert.Equal(t, ExitError, run([]string{"resolve", ids}))
}

func TestScanCommand(t *testing.T) {
	out := setupCLI(t)
	ids := writeFile(t, "ids.txt", "rs310\nrs205\nrs7\n")
	snap := filepath.Join("..", "..", "internal", "snapshot", "testdata", "snapshot.json.bz2")

	code := run([]string{"scan", ids, snap})

	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t,
		"rsid\tstatus\talleles\terror\n"+
			"rs310\tok\tNC_000001.11:310:A:G\t\n"+
			"rs205\tok\tNC_000001.11:205:A:C,NC_000001.11:205:A:T\t\n"+
			"rs7\tnot_found\t\t\n",
		out.String())
}

func TestScanCommand_Index(t *testing.T) {
	out := setupCLI(t)
	ids := writeFile(t, "ids.txt", "rs310\nrs100\n")
	snap := writeFile(t, "snap.json",
		`{"refsnp_id":"310","primary_snapshot_data":{"placements_with_allele":[{"seq_id":"NC_000001.11","placement_annot":{"seq_id_traits_by_assembly":[{"assembly_name":"GRCh38.p14"}]},"alleles":[{"allele":{"spdi":{"seq_id":"NC_000001.11","position":310,"deleted_sequence":"A","inserted_sequence":"G"}},"hgvs":"NC_000001.11:g.311A>G"}]}]}}`+"\n"+
			`{"refsnp_id":"100","primary_snapshot_data":{"placements_with_allele":[{"seq_id":"NC_000001.11","placement_annot":{"seq_id_traits_by_assembly":[{"assembly_name":"GRCh38.p14"}]},"alleles":[{"allele":{"spdi":{"seq_id":"NC_000001.11","position":100,"deleted_sequence":"A","inserted_sequence":"G"}},"hgvs":"NC_000001.11:g.101A>G"}]}]}}`+"\n")

	code := run([]string{"scan", "--index", ids, snap})

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "rs310\tok\tNC_000001.11:310:A:G\t\n")
	assert.Contains(t, out.String(), "rs100\tok\tNC_000001.11:100:A:G\t\n")
}

func TestScanCommand_All(t *testing.T) {
	out := setupCLI(t)
	snap := filepath.Join("..", "..", "internal", "snapshot", "testdata", "snapshot.json.bz2")

	code := run([]string{"scan", "--all", "-", snap})

	assert.Equal(t, ExitSuccess, code)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "rs100\tok\t"))
	assert.True(t, strings.HasPrefix(lines[3], "rs310\tok\t"))
}

func TestScanCommand_Strict(t *testing.T) {
	setupCLI(t)
	ids := writeFile(t, "ids.txt", "rs5\n")
	snap := writeFile(t, "snap.json", "not json\n")

	assert.Equal(t, ExitSuccess, run([]string{"scan", ids, snap}))
	assert.Equal(t, ExitError, run([]string{"scan", "--strict", ids, snap}))
	assert.Equal(t, ExitUsage, run([]string{"scan", "--all", "--index", ids, snap}))
}

func TestScanCommand_MalformedMatchFails(t *testing.T) {
	out := setupCLI(t)
	ids := writeFile(t, "ids.txt", "rs205\nrs7\n")
	snap := writeFile(t, "snap.json",
		`{"refsnp_id":"205","primary_snapshot_data":{"placements_with_allele":[]}}`+"\n")

	code := run([]string{"scan", ids, snap})

	assert.Equal(t, ExitPartial, code)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "rs205\tfailed\t\tsnapshot line 1 (rs205): "), lines[1])
	assert.Contains(t, lines[1], "no placements_with_allele")
	assert.Equal(t, "rs7\tnot_found\t\t", lines[2])
}

func TestScanCommand_OutputFile(t *testing.T) {
	out := setupCLI(t)
	ids := writeFile(t, "ids.txt", "rs100\n")
	snap := filepath.Join("..", "..", "internal", "snapshot", "testdata", "snapshot.json.bz2")
	dest := filepath.Join(t.TempDir(), "scan.tsv")

	code := run([]string{"scan", "-o", dest, ids, snap})

	assert.Equal(t, ExitSuccess, code)
	assert.Empty(t, out.String())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rs100\tok\t")
}

func TestNormalizeCommand(t *testing.T) {
	out := setupCLI(t)
	srv := fakeNCBI(t)
	input := filepath.Join("..", "..", "internal", "clinvar", "testdata", "clinvar_result.txt")
	db := filepath.Join(t.TempDir(), "clinvar.duckdb")

	code := run([]string{"normalize", "--base-url", srv.URL, "--duckdb", db, input})

	assert.Equal(t, ExitSuccess, code)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3, "the row without a canonical SPDI is dropped")
	assert.Len(t, strings.Split(lines[0], "\t"), 24)

	hbb := strings.Split(lines[1], "\t")
	require.Len(t, hbb, 24)
	assert.Equal(t, "Pathogenic", hbb[4])
	assert.Equal(t, "Jan 1, 2020", hbb[5])
	assert.Equal(t, "chr11:5227002", hbb[15])
	assert.Equal(t, "T:A", hbb[16])
	assert.Equal(t, "chr11:5227002:T:A", hbb[18])
	assert.Equal(t, "Pathogenic (P/LP)", hbb[22])

	store, err := duckdb.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	rows, err := store.SearchClinVarByGene(runs[0].ID, "BRCA1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "chr17:43124028:ACT:A", rows[0].HailVariant)
}

func TestNormalizeCommand_MissingColumn(t *testing.T) {
	setupCLI(t)
	input := writeFile(t, "clinvar.txt", "Name\tGene(s)\nfoo\tbar\n")

	assert.Equal(t, ExitError, run([]string{"normalize", input}))
}

func TestConfigCommand(t *testing.T) {
	out := setupCLI(t)

	require.Equal(t, ExitSuccess, run([]string{"config", "set", "ncbi.timeout", "10s"}))
	cfgFile := filepath.Join(os.Getenv("HOME"), ".vibe-spdi.yaml")
	assert.Equal(t, "Set ncbi.timeout = 10s in "+cfgFile+"\n", out.String())
	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 10s")

	out.Reset()
	require.Equal(t, ExitSuccess, run([]string{"config", "get", "ncbi.timeout"}))
	assert.Equal(t, "10s\n", out.String())

	out.Reset()
	require.Equal(t, ExitSuccess, run([]string{"config"}))
	assert.Contains(t, out.String(), "# Config file: "+cfgFile+"\n")
	assert.Contains(t, out.String(), "timeout: 10s")

	out.Reset()
	assert.Equal(t, ExitUsage, run([]string{"config", "set", "--", "workers", "-4"}))
}

func TestLoadConfig(t *testing.T) {
	setupCLI(t)
	t.Setenv("VIBE_SPDI_WORKERS", "4")
	t.Setenv("VIBE_SPDI_NCBI_TIMEOUT", "5s")
	require.NoError(t, initConfig(""))

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "5s", cfg.NCBI.Timeout.String())
	assert.Equal(t, 1000, cfg.Rate.Calls)
	assert.Equal(t, "GRCh38", cfg.Assembly)

	t.Setenv("VIBE_SPDI_RATE_WINDOW", "0s")
	_, err = loadConfig()
	assert.Error(t, err)
}
