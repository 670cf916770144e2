// core/fasta/writer.go
package fasta

import (
	"bufio"
	"io"
)

// DefaultLineWidth is the sequence line width used by NewWriter.
const DefaultLineWidth = 80

// Writer emits FASTA records with wrapped sequence lines. Call Flush when
// done; errors are sticky.
type Writer struct {
	bw    *bufio.Writer
	width int
	err   error
}

// NewWriter returns a Writer wrapping lines at DefaultLineWidth.
func NewWriter(w io.Writer) *Writer { return NewWriterWidth(w, DefaultLineWidth) }

// NewWriterWidth wraps lines at width; width <= 0 writes each sequence on
// a single line.
func NewWriterWidth(w io.Writer, width int) *Writer {
	return &Writer{bw: bufio.NewWriter(w), width: width}
}

// Write emits one record: a ">name" header, then seq wrapped at the
// line width. An empty seq writes only the header.
func (w *Writer) Write(name string, seq []byte) error {
	if w.err != nil {
		return w.err
	}
	w.put([]byte{'>'})
	w.put([]byte(name))
	w.put([]byte{'\n'})
	if w.width <= 0 {
		if len(seq) == 0 {
			return w.err
		}
		w.put(seq)
		w.put([]byte{'\n'})
		return w.err
	}
	for off := 0; off < len(seq); off += w.width {
		end := off + w.width
		if end > len(seq) {
			end = len(seq)
		}
		w.put(seq[off:end])
		w.put([]byte{'\n'})
	}
	return w.err
}

// Flush writes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}

func (w *Writer) put(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.Write(b)
}
