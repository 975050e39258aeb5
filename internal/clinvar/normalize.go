package clinvar

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/resolve"
	"github.com/inodb/vibe-spdi/internal/spdi"
)

// Phenotype buckets.
const (
	PhenotypePathogenic = "Pathogenic (P/LP)"
	PhenotypeBenign     = "Benign (B/LB)"
	PhenotypeUncertain  = "Uncertain/Conflicting"
)

var (
	pathogenicTerms = []string{"Pathogenic", "Likely pathogenic", "Pathogenic/Likely pathogenic"}
	benignTerms     = []string{"Benign", "Likely benign", "Benign/Likely benign"}
)

// Phenotype buckets a clinical significance term.
func Phenotype(significance string) string {
	switch {
	case slices.Contains(pathogenicTerms, significance):
		return PhenotypePathogenic
	case slices.Contains(benignTerms, significance):
		return PhenotypeBenign
	}
	return PhenotypeUncertain
}

// Columns is the header of the normalized table.
var Columns = []string{
	"name",
	"gene",
	"dbsnp_rsid",
	"condition",
	"clinical_significance",
	"last_review_date",
	"review_status",
	"locus_change",
	"protein_change",
	"refseq",
	"accession",
	"grch37_chromosome",
	"grch37_position",
	"grch38_chromosome",
	"grch38_position",
	"grch38_locus",
	"alleles",
	"snv",
	"hail_variant",
	"variation_id",
	"allele_id",
	"ClinVar",
	"Phenotype",
	"spdi",
}

// NormalizedRow is one row of the normalized table.
type NormalizedRow struct {
	Name                 string
	Gene                 string
	DBSNPRSID            string
	Condition            string
	ClinicalSignificance string
	LastReviewDate       string
	ReviewStatus         string
	LocusChange          string
	ProteinChange        string
	RefSeq               string
	Accession            string
	GRCh37Chromosome     string
	GRCh37Position       string
	GRCh38Chromosome     string
	GRCh38Position       string
	GRCh38Locus          string // chr{chrom}:{pos}
	Alleles              string // {ref}:{alt}
	SNV                  bool
	HailVariant          string // chr{chrom}:{pos}:{ref}:{alt}
	VariationID          string
	AlleleID             string
	ClinVar              string
	Phenotype            string
	SPDI                 string

	Err error // set when the canonical SPDI could not be resolved
}

// Values returns the row's fields in Columns order.
func (r *NormalizedRow) Values() []string {
	snv := "0"
	if r.SNV {
		snv = "1"
	}
	return []string{
		r.Name,
		r.Gene,
		r.DBSNPRSID,
		r.Condition,
		r.ClinicalSignificance,
		r.LastReviewDate,
		r.ReviewStatus,
		r.LocusChange,
		r.ProteinChange,
		r.RefSeq,
		r.Accession,
		r.GRCh37Chromosome,
		r.GRCh37Position,
		r.GRCh38Chromosome,
		r.GRCh38Position,
		r.GRCh38Locus,
		r.Alleles,
		snv,
		r.HailVariant,
		r.VariationID,
		r.AlleleID,
		r.ClinVar,
		r.Phenotype,
		r.SPDI,
	}
}

// SPDIResolver converts a canonical SPDI into VCF fields.
type SPDIResolver interface {
	ResolveSPDI(ctx context.Context, s string) (spdi.VCFRecord, error)
}

// Failure describes a row whose SPDI could not be resolved.
type Failure struct {
	Line int
	SPDI string
	Err  error
}

// Report summarizes a normalization run.
type Report struct {
	Rows     int // input rows
	Dropped  int // rows without a canonical SPDI
	Resolved int
	Failed   int
	Failures []Failure
}

// Normalizer reshapes ClinVar rows, resolving each canonical SPDI remotely.
type Normalizer struct {
	resolver SPDIResolver
	workers  int
	logger   *zap.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithWorkers sets the number of concurrent lookups. 0 uses resolve.DefaultWorkers.
func WithWorkers(workers int) NormalizerOption {
	return func(n *Normalizer) { n.workers = workers }
}

// WithLogger sets the logger used to report failed lookups.
func WithLogger(l *zap.Logger) NormalizerOption { return func(n *Normalizer) { n.logger = l } }

// NewNormalizer creates a normalizer backed by the given resolver.
func NewNormalizer(r SPDIResolver, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{resolver: r, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts rows to the normalized schema. Rows without a
// canonical SPDI are dropped; the order of the remaining rows is kept.
// A row whose SPDI cannot be resolved is kept with empty variant columns
// and reported in Report.Failures.
func (n *Normalizer) Normalize(ctx context.Context, rows []Row) ([]NormalizedRow, Report) {
	report := Report{Rows: len(rows)}

	kept := make([]NormalizedRow, 0, len(rows))
	lines := make([]int, 0, len(rows))
	for i := range rows {
		if strings.TrimSpace(rows[i].CanonicalSPDI) == "" {
			report.Dropped++
			continue
		}
		kept = append(kept, normalizeFields(&rows[i]))
		lines = append(lines, rows[i].Line)
	}

	spdis := make([]string, len(kept))
	for i := range kept {
		spdis[i] = kept[i].SPDI
	}
	resolved := resolve.Map(ctx, spdis, n.workers, n.resolver.ResolveSPDI)

	for i, res := range resolved {
		out := &kept[i]
		if res.Err != nil {
			out.Err = res.Err
			report.Failed++
			report.Failures = append(report.Failures, Failure{Line: lines[i], SPDI: out.SPDI, Err: res.Err})
			n.logger.Warn("resolve canonical SPDI failed",
				zap.Int("line", lines[i]),
				zap.String("spdi", out.SPDI),
				zap.Error(res.Err))
			continue
		}
		report.Resolved++
		out.HailVariant = res.Output.String()
		out.GRCh38Locus = res.Output.Locus()
		out.Alleles = res.Output.Alleles()
	}

	return kept, report
}

// normalizeFields derives every column that does not need a remote lookup.
func normalizeFields(r *Row) NormalizedRow {
	refseq, locusChange := splitName(r.Name)
	significance, reviewed := splitSignificance(r.ClinicalSignificance)

	return NormalizedRow{
		Name:                 r.Name,
		Gene:                 r.Genes,
		DBSNPRSID:            r.DBSNPID,
		Condition:            r.Conditions,
		ClinicalSignificance: significance,
		LastReviewDate:       reviewed,
		ReviewStatus:         r.ReviewStatus,
		LocusChange:          locusChange,
		ProteinChange:        r.ProteinChange,
		RefSeq:               refseq,
		Accession:            r.Accession,
		GRCh37Chromosome:     r.GRCh37Chromosome,
		GRCh37Position:       r.GRCh37Location,
		GRCh38Chromosome:     r.GRCh38Chromosome,
		GRCh38Position:       r.GRCh38Location,
		SNV:                  strings.Contains(locusChange, ">"),
		VariationID:          r.VariationID,
		AlleleID:             r.AlleleIDs,
		ClinVar:              significance,
		Phenotype:            Phenotype(significance),
		SPDI:                 strings.TrimSpace(r.CanonicalSPDI),
	}
}

// splitName splits a variant name such as
// "NM_000518.5(HBB):c.20A>T (p.Glu7Val)" into its transcript ("NM_000518.5")
// and coding change ("20A>T").
func splitName(name string) (refseq, locusChange string) {
	refseq, rest, found := strings.Cut(name, "(")
	if !found {
		return name, ""
	}
	segment, _, _ := strings.Cut(rest, "(")
	_, change, found := strings.Cut(segment, "c.")
	if !found {
		return refseq, ""
	}
	change, _, _ = strings.Cut(change, "c.")
	return refseq, strings.TrimSpace(change)
}

// splitSignificance splits "Pathogenic(Last reviewed: Jan 1, 2020)" into
// "Pathogenic" and "Jan 1, 2020".
func splitSignificance(field string) (significance, reviewed string) {
	significance, _, _ = strings.Cut(field, "(")
	if _, after, found := strings.Cut(field, ":"); found {
		reviewed, _, _ = strings.Cut(after, ")")
	}
	return strings.TrimSpace(significance), strings.TrimSpace(reviewed)
}
