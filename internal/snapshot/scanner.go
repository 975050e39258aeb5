// Package snapshot resolves rsIDs by streaming a dbSNP JSON snapshot file,
// one RefSNP record per line.
package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"

	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/refsnp"
)

// ErrMalformedRecord is returned for lines that are not valid RefSNP records.
var ErrMalformedRecord = errors.New("malformed snapshot record")

// MalformedRecordError reports a snapshot line that could not be parsed.
type MalformedRecordError struct {
	Line int
	ID   uint64 // 0 when the id itself could not be read
	Err  error
}

func (e *MalformedRecordError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("snapshot line %d (rs%d): %v", e.Line, e.ID, e.Err)
	}
	return fmt.Sprintf("snapshot line %d: %v", e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// Stats counts what a scanner has read so far.
type Stats struct {
	Lines     int // non-empty lines read
	Malformed int // lines skipped because they could not be parsed
	Matched   int // records extracted
}

// progressInterval is how many lines are read between progress messages.
const progressInterval = 1_000_000

// Scanner reads RefSNP records from a snapshot stream. A Scanner makes a
// single forward pass and never rewinds; every read method continues from
// where the previous one stopped.
type Scanner struct {
	reader   *bufio.Reader
	assembly string
	strict   bool
	logger   *zap.Logger

	lineNumber int
	pending    *line // one-record look-ahead
	stats      Stats
	failed     map[uint64]error // queried ids whose record was malformed
}

// line is a snapshot line whose id has been decoded.
type line struct {
	number int
	id     uint64
	data   []byte
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithAssembly sets the reference build alleles are extracted for.
func WithAssembly(a string) Option { return func(s *Scanner) { s.assembly = a } }

// WithStrict makes the scanner stop at the first malformed line instead of
// logging and skipping it.
func WithStrict(strict bool) Option { return func(s *Scanner) { s.strict = strict } }

// WithLogger sets the logger for skipped lines and progress.
func WithLogger(l *zap.Logger) Option { return func(s *Scanner) { s.logger = l } }

// NewScanner creates a scanner over an already decompressed stream.
func NewScanner(r io.Reader, opts ...Option) *Scanner {
	s := &Scanner{
		reader:   bufio.NewReaderSize(r, readBufferSize),
		assembly: refsnp.DefaultAssembly,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns counters for the lines read so far.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Failed returns the query ids whose snapshot record was found by Scan or
// Index but could not be parsed, each with its *MalformedRecordError.
// These ids are absent from the result maps.
func (s *Scanner) Failed() map[uint64]error {
	return maps.Clone(s.failed)
}

// Scan matches a query set against the snapshot in one forward pass.
//
// Each query id is looked for from the current stream position onwards.
// Records with smaller ids are consumed; a record with a larger id is kept
// for the next query. This relies on the snapshot being sorted by rsID,
// as dbSNP's per-chromosome files are: if it is not, an id whose record
// lies before the current position is reported as not found rather than
// as an error. Ids that are not found are absent from the result, as are
// ids whose record is malformed; those are reported by Failed.
func (s *Scanner) Scan(ctx context.Context, ids SortedIDs) (map[uint64]refsnp.Record, error) {
	if !ids.IsSorted() {
		s.logger.Warn("query ids are not strictly ascending; ids behind the scan position will not be found")
	}

	results := make(map[uint64]refsnp.Record, ids.Len())
	for _, q := range ids.ids {
		for {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			l, err := s.peek()
			if err == io.EOF {
				return results, nil
			}
			if err != nil {
				return results, err
			}
			if l.id > q {
				break
			}
			s.pending = nil
			if l.id == q {
				rec, merr := s.extract(l)
				if merr != nil {
					if err := s.fail(q, merr); err != nil {
						return results, err
					}
					break
				}
				results[q] = rec
				break
			}
		}
	}
	return results, nil
}

// Index matches a query set in one full pass regardless of the order of
// the snapshot or of the ids. It stops early once every id has been seen,
// either extracted or reported by Failed.
func (s *Scanner) Index(ctx context.Context, ids []uint64) (map[uint64]refsnp.Record, error) {
	wanted := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	results := make(map[uint64]refsnp.Record, len(wanted))
	settled := 0
	for settled < len(wanted) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		l, err := s.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, err
		}
		if !wanted[l.id] {
			continue
		}
		wanted[l.id] = false
		settled++

		rec, merr := s.extract(l)
		if merr != nil {
			if err := s.fail(l.id, merr); err != nil {
				return results, err
			}
			continue
		}
		results[l.id] = rec
	}
	return results, nil
}

// Each extracts every remaining record and passes it to fn.
func (s *Scanner) Each(ctx context.Context, fn func(refsnp.Record) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l, err := s.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		rec, merr := s.extract(l)
		if merr != nil {
			if err := s.skip(merr); err != nil {
				return err
			}
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// peek returns the next record without consuming it.
func (s *Scanner) peek() (*line, error) {
	if s.pending == nil {
		l, err := s.next()
		if err != nil {
			return nil, err
		}
		s.pending = l
	}
	return s.pending, nil
}

// next consumes and returns the next record whose id can be decoded.
// Only the id is decoded here; the full record is parsed by extract.
func (s *Scanner) next() (*line, error) {
	if s.pending != nil {
		l := s.pending
		s.pending = nil
		return l, nil
	}

	for {
		data, err := s.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		if len(data) == 0 && err == io.EOF {
			return nil, io.EOF
		}
		s.lineNumber++

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}
		s.stats.Lines++
		if s.stats.Lines%progressInterval == 0 {
			s.logger.Info("scanning snapshot", zap.Int("lines", s.stats.Lines), zap.Int("matched", s.stats.Matched))
		}

		var hdr struct {
			ID refsnp.ID `json:"refsnp_id"`
		}
		if jerr := json.Unmarshal(data, &hdr); jerr != nil {
			if ferr := s.skip(&MalformedRecordError{Line: s.lineNumber, Err: jerr}); ferr != nil {
				return nil, ferr
			}
			continue
		}
		if hdr.ID == 0 {
			if ferr := s.skip(&MalformedRecordError{Line: s.lineNumber, Err: errors.New("missing refsnp_id")}); ferr != nil {
				return nil, ferr
			}
			continue
		}

		return &line{number: s.lineNumber, id: uint64(hdr.ID), data: data}, nil
	}
}

// extract parses the full record of a line.
func (s *Scanner) extract(l *line) (refsnp.Record, *MalformedRecordError) {
	var r refsnp.RefSNP
	if err := json.Unmarshal(l.data, &r); err != nil {
		return refsnp.Record{}, &MalformedRecordError{Line: l.number, ID: l.id, Err: err}
	}
	rec, err := r.Extract(s.assembly)
	if err != nil {
		return refsnp.Record{}, &MalformedRecordError{Line: l.number, ID: l.id, Err: err}
	}
	s.stats.Matched++
	return rec, nil
}

// fail records a malformed record for a queried id, then skips it.
func (s *Scanner) fail(id uint64, merr *MalformedRecordError) error {
	if err := s.skip(merr); err != nil {
		return err
	}
	if s.failed == nil {
		s.failed = make(map[uint64]error)
	}
	s.failed[id] = merr
	return nil
}

// skip records a bad line. It returns the error only in strict mode.
func (s *Scanner) skip(merr *MalformedRecordError) error {
	if s.strict {
		return merr
	}
	s.stats.Malformed++
	s.logger.Warn("skipping malformed snapshot line", zap.Int("line", merr.Line), zap.Error(merr.Err))
	return nil
}
