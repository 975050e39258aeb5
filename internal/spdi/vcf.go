package spdi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidOutputKind is returned by Encode for an unknown output kind.
var ErrInvalidOutputKind = errors.New("invalid output kind")

// OutputKind selects the notation produced by Encode.
type OutputKind string

// Output kinds
const (
	Locus        OutputKind = "locus"         // chr{chrom}:{pos}
	AlleleChange OutputKind = "allele_change" // {ref}:{alt}
	Var          OutputKind = "var"           // chr{chrom}:{pos}:{ref}:{alt}
)

// ParseOutputKind converts a string to an OutputKind.
func ParseOutputKind(s string) (OutputKind, error) {
	switch k := OutputKind(s); k {
	case Locus, AlleleChange, Var:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (expected locus, allele_change or var)", ErrInvalidOutputKind, s)
}

// VCFRecord is a VCF-style variant call derived from an SPDI.
type VCFRecord struct {
	Chrom string // Chromosome number without "chr" prefix (e.g., "1", "23")
	Pos   uint64 // 1-based VCF position
	Ref   string // Reference allele
	Alt   string // Alternate allele
}

// Encode formats a record in the requested notation.
func Encode(r VCFRecord, kind OutputKind) (string, error) {
	pos := strconv.FormatUint(r.Pos, 10)
	switch kind {
	case Locus:
		return "chr" + r.Chrom + ":" + pos, nil
	case AlleleChange:
		return r.Ref + ":" + r.Alt, nil
	case Var:
		return "chr" + r.Chrom + ":" + pos + ":" + r.Ref + ":" + r.Alt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutputKind, kind)
}

// ParseVar parses the "chr{chrom}:{pos}:{ref}:{alt}" form produced by
// Encode with the Var kind.
func ParseVar(s string) (VCFRecord, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return VCFRecord{}, fmt.Errorf("variant %q: expected 4 components, found %d", s, len(parts))
	}
	chrom, ok := strings.CutPrefix(parts[0], "chr")
	if !ok || chrom == "" {
		return VCFRecord{}, fmt.Errorf("variant %q: invalid chromosome %q", s, parts[0])
	}
	pos, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return VCFRecord{}, fmt.Errorf("variant %q: invalid position %q", s, parts[1])
	}
	return VCFRecord{Chrom: chrom, Pos: pos, Ref: parts[2], Alt: parts[3]}, nil
}

// Locus returns the "chr{chrom}:{pos}" form of the record.
func (r VCFRecord) Locus() string {
	s, _ := Encode(r, Locus)
	return s
}

// Alleles returns the "{ref}:{alt}" form of the record.
func (r VCFRecord) Alleles() string {
	s, _ := Encode(r, AlleleChange)
	return s
}

// String returns the "chr{chrom}:{pos}:{ref}:{alt}" form of the record.
func (r VCFRecord) String() string {
	s, _ := Encode(r, Var)
	return s
}
