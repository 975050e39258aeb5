package duckdb

import (
	"database/sql"
	"errors"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-spdi/internal/clinvar"
)

// WriteClinVarRows batch-inserts normalized ClinVar rows for a run.
func (s *Store) WriteClinVarRows(runID string, rows []clinvar.NormalizedRow) error {
	if len(rows) == 0 {
		return nil
	}

	return s.appendRows("clinvar_variants", func(a *goduckdb.Appender) error {
		for i := range rows {
			r := &rows[i]
			var errText any
			if r.Err != nil {
				errText = r.Err.Error()
			}
			if err := a.AppendRow(
				runID,
				r.Name, r.Gene, r.DBSNPRSID, r.Condition,
				r.ClinicalSignificance, r.LastReviewDate, r.ReviewStatus,
				r.LocusChange, r.ProteinChange, r.RefSeq, r.Accession,
				r.GRCh37Chromosome, r.GRCh37Position, r.GRCh38Chromosome, r.GRCh38Position,
				r.GRCh38Locus, r.Alleles, r.SNV, r.HailVariant,
				r.VariationID, r.AlleleID, r.ClinVar, r.Phenotype, r.SPDI,
				errText,
			); err != nil {
				return fmt.Errorf("append clinvar row %s: %w", r.SPDI, err)
			}
		}
		return nil
	})
}

// SearchClinVarByGene returns a run's normalized rows for a gene.
func (s *Store) SearchClinVarByGene(runID, gene string) ([]clinvar.NormalizedRow, error) {
	rows, err := s.db.Query(`SELECT
		name, gene, dbsnp_rsid, condition,
		clinical_significance, last_review_date, review_status,
		locus_change, protein_change, refseq, accession,
		grch37_chromosome, grch37_position, grch38_chromosome, grch38_position,
		grch38_locus, alleles, snv, hail_variant,
		variation_id, allele_id, clinvar, phenotype, spdi, error
		FROM clinvar_variants
		WHERE run_id=? AND gene=?`, runID, gene)
	if err != nil {
		return nil, fmt.Errorf("query clinvar by gene: %w", err)
	}
	defer rows.Close()

	var out []clinvar.NormalizedRow
	for rows.Next() {
		var r clinvar.NormalizedRow
		var errText sql.NullString
		if err := rows.Scan(
			&r.Name, &r.Gene, &r.DBSNPRSID, &r.Condition,
			&r.ClinicalSignificance, &r.LastReviewDate, &r.ReviewStatus,
			&r.LocusChange, &r.ProteinChange, &r.RefSeq, &r.Accession,
			&r.GRCh37Chromosome, &r.GRCh37Position, &r.GRCh38Chromosome, &r.GRCh38Position,
			&r.GRCh38Locus, &r.Alleles, &r.SNV, &r.HailVariant,
			&r.VariationID, &r.AlleleID, &r.ClinVar, &r.Phenotype, &r.SPDI, &errText,
		); err != nil {
			return nil, fmt.Errorf("scan clinvar row: %w", err)
		}
		if errText.Valid {
			r.Err = errors.New(errText.String)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clinvar rows: %w", err)
	}
	return out, nil
}
