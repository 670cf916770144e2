// core/fasta/open.go
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

var gzipMagic = []byte{0x1f, 0x8b}

// source pairs the decoded stream with the handles that must be closed
// once reading is done, innermost first.
type source struct {
	io.Reader
	handles []io.Closer
}

func (s *source) Close() error {
	var first error
	for _, h := range s.handles {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns a reader over path, "-" meaning stdin. Input is gunzipped
// when it starts with the gzip magic bytes or path ends in ".gz"; a ".gz"
// file that is not gzip is an error.
func Open(path string) (io.ReadCloser, error) {
	var (
		raw    io.Reader = os.Stdin
		handle io.Closer = io.NopCloser(nil)
	)
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		raw, handle = fh, fh
	}
	br := bufio.NewReaderSize(raw, 1<<16)
	head, _ := br.Peek(len(gzipMagic))
	if string(head) != string(gzipMagic) && !strings.HasSuffix(path, ".gz") {
		return &source{Reader: br, handles: []io.Closer{handle}}, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &source{Reader: zr, handles: []io.Closer{zr, handle}}, nil
}
