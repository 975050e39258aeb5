// Package duckdb exports resolved rsIDs and normalized ClinVar rows to a
// DuckDB database. Each export is stamped with a run id so several runs
// can share one file.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for exported results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			command VARCHAR,
			input_path VARCHAR,
			input_size BIGINT,
			input_mtime TIMESTAMP,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS rsid_variants (
			run_id VARCHAR,
			rsid UBIGINT,
			status VARCHAR,
			chrom VARCHAR,
			pos UBIGINT,
			ref VARCHAR,
			alt VARCHAR,
			hail_variant VARCHAR,
			error VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS clinvar_variants (
			run_id VARCHAR,
			name VARCHAR,
			gene VARCHAR,
			dbsnp_rsid VARCHAR,
			condition VARCHAR,
			clinical_significance VARCHAR,
			last_review_date VARCHAR,
			review_status VARCHAR,
			locus_change VARCHAR,
			protein_change VARCHAR,
			refseq VARCHAR,
			accession VARCHAR,
			grch37_chromosome VARCHAR,
			grch37_position VARCHAR,
			grch38_chromosome VARCHAR,
			grch38_position VARCHAR,
			grch38_locus VARCHAR,
			alleles VARCHAR,
			snv BOOLEAN,
			hail_variant VARCHAR,
			variation_id VARCHAR,
			allele_id VARCHAR,
			clinvar VARCHAR,
			phenotype VARCHAR,
			spdi VARCHAR,
			error VARCHAR
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
