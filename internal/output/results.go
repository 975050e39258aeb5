package output

import (
	"io"
	"strings"

	"github.com/inodb/vibe-spdi/internal/refsnp"
	"github.com/inodb/vibe-spdi/internal/resolve"
)

// Status values of the result table.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusNotFound = "not_found"
)

// ResultColumns is the header of the rsID result table.
var ResultColumns = []string{"rsid", "status", "alleles", "error"}

// ResultWriter writes one line per queried rsID. Alleles are comma
// separated: VCF-style variants for remote lookups, SPDIs for snapshot scans.
type ResultWriter struct {
	tw *TabWriter
}

// NewResultWriter creates a writer for rsID results.
func NewResultWriter(w io.Writer) *ResultWriter {
	return &ResultWriter{tw: NewTabWriter(w, ResultColumns)}
}

// WriteHeader writes the header line.
func (rw *ResultWriter) WriteHeader() error {
	return rw.tw.WriteHeader()
}

// WriteResolved writes the outcome of a remote lookup.
func (rw *ResultWriter) WriteResolved(r resolve.Result) error {
	if r.Err != nil {
		return rw.tw.WriteRow([]string{refsnp.FormatRSID(r.RSID), StatusFailed, "", r.Err.Error()})
	}
	return rw.tw.WriteRow([]string{refsnp.FormatRSID(r.RSID), StatusOK, strings.Join(r.Vars(), ","), ""})
}

// WriteRecord writes an rsID found in a snapshot.
func (rw *ResultWriter) WriteRecord(rec refsnp.Record) error {
	alleles := make([]string, len(rec.SPDIs))
	for i, s := range rec.SPDIs {
		alleles[i] = s.String()
	}
	return rw.tw.WriteRow([]string{refsnp.FormatRSID(rec.RSID), StatusOK, strings.Join(alleles, ","), ""})
}

// WriteFailed writes an rsID whose lookup failed.
func (rw *ResultWriter) WriteFailed(rsid uint64, err error) error {
	return rw.tw.WriteRow([]string{refsnp.FormatRSID(rsid), StatusFailed, "", err.Error()})
}

// WriteNotFound writes an rsID that was not present in a snapshot.
func (rw *ResultWriter) WriteNotFound(rsid uint64) error {
	return rw.tw.WriteRow([]string{refsnp.FormatRSID(rsid), StatusNotFound, "", ""})
}

// Flush flushes any buffered data to the underlying writer.
func (rw *ResultWriter) Flush() error {
	return rw.tw.Flush()
}
