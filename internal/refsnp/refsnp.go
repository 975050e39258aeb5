// Package refsnp models dbSNP RefSNP JSON records and extracts their
// SPDI alleles.
//
// The same record shape is returned by the Variation Services refsnp
// endpoint and stored one-per-line in the dbSNP JSON snapshot files.
package refsnp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-spdi/internal/spdi"
)

// DefaultAssembly is the reference build alleles are extracted for.
const DefaultAssembly = "GRCh38"

// ErrMalformed is returned when a record does not have the expected shape.
var ErrMalformed = errors.New("malformed refsnp record")

// ID is a numeric RefSNP identifier. dbSNP serializes it as a JSON
// string ("268"), but bare numbers are accepted too.
type ID uint64

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("refsnp_id is null")
	}
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid refsnp_id %s", b)
	}
	*id = ID(v)
	return nil
}

// RefSNP is the subset of a dbSNP RefSNP record used for allele extraction.
type RefSNP struct {
	ID                  ID            `json:"refsnp_id"`
	PrimarySnapshotData *SnapshotData `json:"primary_snapshot_data"`
}

// SnapshotData holds the placements of a RefSNP.
type SnapshotData struct {
	PlacementsWithAllele []Placement `json:"placements_with_allele"`
}

// Placement is the location of a RefSNP on one reference sequence.
type Placement struct {
	SeqID          string          `json:"seq_id"`
	PlacementAnnot *PlacementAnnot `json:"placement_annot"`
	Alleles        []Allele        `json:"alleles"`
}

// PlacementAnnot carries the assemblies a placement sequence belongs to.
type PlacementAnnot struct {
	SeqIDTraitsByAssembly []AssemblyTraits `json:"seq_id_traits_by_assembly"`
}

// AssemblyTraits names a genome assembly.
type AssemblyTraits struct {
	AssemblyName string `json:"assembly_name"`
}

// Allele is one allele of a placement with its HGVS description.
type Allele struct {
	Allele struct {
		SPDI *SPDIFields `json:"spdi"`
	} `json:"allele"`
	HGVS string `json:"hgvs"`
}

// SPDIFields is the JSON form of an SPDI allele.
type SPDIFields struct {
	SeqID            string  `json:"seq_id"`
	Position         *uint64 `json:"position"`
	DeletedSequence  *string `json:"deleted_sequence"`
	InsertedSequence *string `json:"inserted_sequence"`
}

// Record is a RefSNP reduced to its assembly and changed alleles.
type Record struct {
	RSID         uint64
	AssemblyName string
	SPDIs        []spdi.SPDI
}

// Extract returns the record's alleles on the primary placement.
//
// Only the first placement and its first assembly annotation are
// considered. When that assembly does not contain the expected build name
// the record is returned with no alleles. Alleles whose HGVS expression
// marks them as identical to the reference ("=") are excluded.
func (r *RefSNP) Extract(assembly string) (Record, error) {
	if r.ID == 0 {
		return Record{}, fmt.Errorf("%w: missing refsnp_id", ErrMalformed)
	}
	rec := Record{RSID: uint64(r.ID)}

	if r.PrimarySnapshotData == nil {
		return rec, fmt.Errorf("%w: rs%d: missing primary_snapshot_data", ErrMalformed, r.ID)
	}
	placements := r.PrimarySnapshotData.PlacementsWithAllele
	if len(placements) == 0 {
		return rec, fmt.Errorf("%w: rs%d: no placements_with_allele", ErrMalformed, r.ID)
	}
	primary := placements[0]
	if primary.PlacementAnnot == nil || len(primary.PlacementAnnot.SeqIDTraitsByAssembly) == 0 {
		return rec, fmt.Errorf("%w: rs%d: missing seq_id_traits_by_assembly", ErrMalformed, r.ID)
	}
	rec.AssemblyName = primary.PlacementAnnot.SeqIDTraitsByAssembly[0].AssemblyName

	if !strings.Contains(rec.AssemblyName, assembly) {
		return rec, nil
	}

	for i, a := range primary.Alleles {
		if strings.Contains(a.HGVS, "=") {
			continue
		}
		f := a.Allele.SPDI
		if f == nil || f.SeqID == "" || f.Position == nil || f.DeletedSequence == nil || f.InsertedSequence == nil {
			return rec, fmt.Errorf("%w: rs%d: allele %d has incomplete spdi", ErrMalformed, r.ID, i)
		}
		rec.SPDIs = append(rec.SPDIs, spdi.New(f.SeqID, *f.Position, *f.DeletedSequence, *f.InsertedSequence))
	}

	return rec, nil
}
