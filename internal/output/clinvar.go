package output

import (
	"io"

	"github.com/inodb/vibe-spdi/internal/clinvar"
)

// ClinVarWriter writes normalized ClinVar rows.
type ClinVarWriter struct {
	tw *TabWriter
}

// NewClinVarWriter creates a writer for the normalized 24-column table.
func NewClinVarWriter(w io.Writer) *ClinVarWriter {
	return &ClinVarWriter{tw: NewTabWriter(w, clinvar.Columns)}
}

// WriteHeader writes the header line.
func (cw *ClinVarWriter) WriteHeader() error {
	return cw.tw.WriteHeader()
}

// Write writes a single normalized row.
func (cw *ClinVarWriter) Write(r *clinvar.NormalizedRow) error {
	return cw.tw.WriteRow(r.Values())
}

// Flush flushes any buffered data to the underlying writer.
func (cw *ClinVarWriter) Flush() error {
	return cw.tw.Flush()
}
