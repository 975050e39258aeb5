package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-spdi/internal/resolve"
)

// RSIDVariant is one row of the rsid_variants table. A resolved rsID has
// one row per variant; a failed rsID has a single row carrying the error.
type RSIDVariant struct {
	RSID        uint64
	Status      string
	Chrom       string
	Pos         uint64
	Ref         string
	Alt         string
	HailVariant string
	Error       string
}

// Status values of the rsid_variants table.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// appendRows opens an appender on table and calls fill with it.
func (s *Store) appendRows(table string, fill func(*goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fill(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// WriteResolveResults batch-inserts rsID lookup results for a run using
// the Appender API.
func (s *Store) WriteResolveResults(runID string, results []resolve.Result) error {
	if len(results) == 0 {
		return nil
	}

	return s.appendRows("rsid_variants", func(a *goduckdb.Appender) error {
		for _, r := range results {
			if r.Err != nil {
				if err := a.AppendRow(runID, r.RSID, StatusFailed, nil, nil, nil, nil, nil, r.Err.Error()); err != nil {
					return fmt.Errorf("append rs%d: %w", r.RSID, err)
				}
				continue
			}
			if len(r.Variants) == 0 {
				if err := a.AppendRow(runID, r.RSID, StatusOK, nil, nil, nil, nil, nil, nil); err != nil {
					return fmt.Errorf("append rs%d: %w", r.RSID, err)
				}
				continue
			}
			for _, v := range r.Variants {
				if err := a.AppendRow(runID, r.RSID, StatusOK, v.Chrom, v.Pos, v.Ref, v.Alt, v.String(), nil); err != nil {
					return fmt.Errorf("append rs%d: %w", r.RSID, err)
				}
			}
		}
		return nil
	})
}

// RSIDVariants returns the rows written for a run, ordered by rsID.
func (s *Store) RSIDVariants(runID string) ([]RSIDVariant, error) {
	rows, err := s.db.Query(`SELECT rsid, status, chrom, pos, ref, alt, hail_variant, error
		FROM rsid_variants
		WHERE run_id=?
		ORDER BY rsid, hail_variant`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rsid variants: %w", err)
	}
	defer rows.Close()

	var out []RSIDVariant
	for rows.Next() {
		var v RSIDVariant
		var chrom, ref, alt, hail, msg sql.NullString
		var pos sql.Null[uint64]
		if err := rows.Scan(&v.RSID, &v.Status, &chrom, &pos, &ref, &alt, &hail, &msg); err != nil {
			return nil, fmt.Errorf("scan rsid variant: %w", err)
		}
		v.Chrom, v.Pos, v.Ref, v.Alt = chrom.String, pos.V, ref.String, alt.String
		v.HailVariant, v.Error = hail.String, msg.String
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rsid variants: %w", err)
	}
	return out, nil
}
