// Package clinvar reads ClinVar tabular exports and normalizes them into a
// fixed column schema with VCF-style variant columns.
package clinvar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Column names of the ClinVar search-results export.
const (
	ColName                 = "Name"
	ColGenes                = "Gene(s)"
	ColDBSNPID              = "dbSNP ID"
	ColConditions           = "Condition(s)"
	ColClinicalSignificance = "Clinical significance (Last reviewed)"
	ColReviewStatus         = "Review status"
	ColProteinChange        = "Protein change"
	ColAccession            = "Accession"
	ColGRCh37Chromosome     = "GRCh37Chromosome"
	ColGRCh37Location       = "GRCh37Location"
	ColGRCh38Chromosome     = "GRCh38Chromosome"
	ColGRCh38Location       = "GRCh38Location"
	ColVariationID          = "VariationID"
	ColAlleleIDs            = "AlleleID(s)"
	ColCanonicalSPDI        = "Canonical SPDI"
)

// requiredColumns must be present in the header.
var requiredColumns = []string{ColName, ColClinicalSignificance, ColCanonicalSPDI}

// Row is one record of a ClinVar export. Fields hold the raw column text.
type Row struct {
	Line int // line number in the source file

	Name                 string
	Genes                string
	DBSNPID              string
	Conditions           string
	ClinicalSignificance string // combined significance and review date
	ReviewStatus         string
	ProteinChange        string
	Accession            string
	GRCh37Chromosome     string
	GRCh37Location       string
	GRCh38Chromosome     string
	GRCh38Location       string
	VariationID          string
	AlleleIDs            string
	CanonicalSPDI        string
}

// ParseError represents an error reading a ClinVar export.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("clinvar line %d: %s", e.Line, e.Message)
}

// Reader reads rows from a ClinVar tab-separated export.
type Reader struct {
	reader     *bufio.Reader
	closer     io.Closer
	gzipReader *gzip.Reader
	lineNumber int
	columns    map[string]int
	width      int
}

// NewReader opens a ClinVar export. Gzipped files are detected from their
// magic bytes. A path of "-" reads from stdin.
func NewReader(path string) (*Reader, error) {
	if path == "-" {
		return NewReaderFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clinvar file: %w", err)
	}

	r, err := newReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReaderFromReader creates a reader from an io.Reader (e.g., stdin).
func NewReaderFromReader(r io.Reader) (*Reader, error) {
	return newReader(r)
}

func newReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	cr := &Reader{reader: br}

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		cr.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		cr.reader = bufio.NewReader(cr.gzipReader)
	}

	if err := cr.parseHeader(); err != nil {
		if cr.gzipReader != nil {
			cr.gzipReader.Close()
		}
		return nil, err
	}
	return cr, nil
}

// parseHeader reads the first non-empty line and records column positions.
func (r *Reader) parseHeader() error {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" && err == io.EOF {
			return &ParseError{Line: r.lineNumber, Message: "no header line found"}
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		cols := strings.Split(line, "\t")
		r.columns = make(map[string]int, len(cols))
		for i, c := range cols {
			r.columns[strings.TrimSpace(c)] = i
		}
		r.width = len(cols)

		for _, c := range requiredColumns {
			if _, ok := r.columns[c]; !ok {
				return &ParseError{
					Line:    r.lineNumber,
					Message: fmt.Sprintf("required column '%s' not found in header", c),
				}
			}
		}
		return nil
	}
}

// Next reads the next row. Returns nil, nil when there are no more rows.
func (r *Reader) Next() (*Row, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read clinvar line: %w", err)
		}
		if line == "" && err == io.EOF {
			return nil, nil
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) > r.width {
			return nil, &ParseError{
				Line:    r.lineNumber,
				Message: fmt.Sprintf("expected at most %d columns, found %d", r.width, len(fields)),
			}
		}

		get := func(col string) string {
			i, ok := r.columns[col]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		return &Row{
			Line:                 r.lineNumber,
			Name:                 get(ColName),
			Genes:                get(ColGenes),
			DBSNPID:              get(ColDBSNPID),
			Conditions:           get(ColConditions),
			ClinicalSignificance: get(ColClinicalSignificance),
			ReviewStatus:         get(ColReviewStatus),
			ProteinChange:        get(ColProteinChange),
			Accession:            get(ColAccession),
			GRCh37Chromosome:     get(ColGRCh37Chromosome),
			GRCh37Location:       get(ColGRCh37Location),
			GRCh38Chromosome:     get(ColGRCh38Chromosome),
			GRCh38Location:       get(ColGRCh38Location),
			VariationID:          get(ColVariationID),
			AlleleIDs:            get(ColAlleleIDs),
			CanonicalSPDI:        get(ColCanonicalSPDI),
		}, nil
	}
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := r.Next()
		if err != nil {
			return rows, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, *row)
	}
}

// LineNumber returns the current line number.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and any underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
