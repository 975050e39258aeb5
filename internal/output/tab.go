// Package output provides tab-delimited writers for resolved variants and
// normalized ClinVar tables.
package output

import (
	"bufio"
	"io"
	"strings"
)

// TabWriter writes rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer with the given header columns.
func NewTabWriter(w io.Writer, columns []string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteRow writes one row. Tabs and newlines inside values are replaced
// with spaces so that every row keeps the header's width.
func (tw *TabWriter) WriteRow(values []string) error {
	clean := make([]string, len(values))
	for i, v := range values {
		clean[i] = sanitize(v)
	}
	_, err := tw.w.WriteString(strings.Join(clean, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

var fieldReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func sanitize(v string) string {
	if !strings.ContainsAny(v, "\t\r\n") {
		return v
	}
	return fieldReplacer.Replace(v)
}
