// Package spdi provides SPDI allele identifiers and their conversion to
// VCF-style locus/allele notation.
package spdi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSPDI is returned when a string is not a well-formed SPDI.
var ErrInvalidSPDI = errors.New("invalid SPDI")

// SPDI is a Sequence-Position-Deletion-Insertion allele identifier.
type SPDI struct {
	SeqID    string // Reference sequence accession (e.g., "NC_000001.11")
	Position uint64 // 0-based interbase position
	Deleted  string // Deleted sequence (may be empty)
	Inserted string // Inserted sequence (may be empty)
}

// New creates an SPDI from its four components.
func New(seqID string, position uint64, deleted, inserted string) SPDI {
	return SPDI{SeqID: seqID, Position: position, Deleted: deleted, Inserted: inserted}
}

// Parse parses an SPDI string of the form "seq:pos:del:ins".
// All four components must be present; deleted and inserted sequences
// may be empty.
func Parse(s string) (SPDI, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return SPDI{}, fmt.Errorf("%w %q: expected 4 components, found %d", ErrInvalidSPDI, s, len(parts))
	}
	if parts[0] == "" {
		return SPDI{}, fmt.Errorf("%w %q: empty sequence id", ErrInvalidSPDI, s)
	}
	pos, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return SPDI{}, fmt.Errorf("%w %q: invalid position %q", ErrInvalidSPDI, s, parts[1])
	}
	return SPDI{
		SeqID:    parts[0],
		Position: pos,
		Deleted:  parts[2],
		Inserted: parts[3],
	}, nil
}

// String returns the canonical "seq:pos:del:ins" form.
func (s SPDI) String() string {
	return s.SeqID + ":" + strconv.FormatUint(s.Position, 10) + ":" + s.Deleted + ":" + s.Inserted
}

// ChromosomeNumber extracts the chromosome number from a RefSeq sequence
// accession. The version suffix and the accession prefix are removed, then
// leading zeros are stripped: "NC_000001.11" becomes "1".
func ChromosomeNumber(seqID string) (string, error) {
	base, _, _ := strings.Cut(seqID, ".")
	_, num, found := strings.Cut(base, "_")
	if !found {
		return "", fmt.Errorf("sequence id %q: missing accession prefix", seqID)
	}
	num = strings.TrimLeft(num, "0")
	if num == "" {
		return "", fmt.Errorf("sequence id %q: empty chromosome number", seqID)
	}
	return num, nil
}
