package snapshot

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Magic numbers of the supported compression formats.
var (
	magicBzip2 = []byte("BZh")
	magicGzip  = []byte{0x1f, 0x8b}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

const readBufferSize = 1 << 20

// Open opens a snapshot file, transparently decompressing bzip2 (the
// format dbSNP distributes), gzip or zstd. Use "-" for stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}

	rc, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &fileReadCloser{ReadCloser: rc, file: file}, nil
}

// NewReader wraps r with a decompressor chosen from its leading bytes.
// Uncompressed input is returned as-is. Closing the result does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, magicBzip2):
		return io.NopCloser(bzip2.NewReader(br)), nil
	case bytes.HasPrefix(head, magicGzip):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, nil
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	}
	return io.NopCloser(br), nil
}

// fileReadCloser closes both the decompressor and the underlying file.
type fileReadCloser struct {
	io.ReadCloser
	file *os.File
}

func (f *fileReadCloser) Close() error {
	f.ReadCloser.Close()
	return f.file.Close()
}
