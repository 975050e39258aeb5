package duckdb

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// FileFingerprint holds stat-based identity for an input file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file. Stdin ("-")
// yields a fingerprint with only the path set.
func StatFile(path string) (FileFingerprint, error) {
	if path == "-" {
		return FileFingerprint{Path: path}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Run identifies one export.
type Run struct {
	ID        string
	Command   string
	Input     FileFingerprint
	CreatedAt time.Time
}

// NewRun creates a run with a fresh id.
func NewRun(command string, input FileFingerprint) Run {
	return Run{
		ID:        uuid.NewString(),
		Command:   command,
		Input:     input,
		CreatedAt: time.Now().UTC(),
	}
}

// BeginRun records a run. Rows written afterwards reference its id.
func (s *Store) BeginRun(r Run) error {
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Command, r.Input.Path, r.Input.Size, r.Input.ModTime.UTC(), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns all recorded runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, command, input_path, input_size, input_mtime, created_at
		FROM runs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Command, &r.Input.Path, &r.Input.Size, &r.Input.ModTime, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
