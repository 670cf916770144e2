package fasta

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWriterWraps(t *testing.T) {
	var b bytes.Buffer
	w := NewWriterWidth(&b, 4)
	if err := w.Write("abc", []byte("ACGTACGTAC")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	want := ">abc\nACGT\nACGT\nAC\n"
	if b.String() != want {
		t.Fatalf("got %q want %q", b.String(), want)
	}
}

func TestWriterRoundTripsThroughReader(t *testing.T) {
	var b bytes.Buffer
	w := NewWriter(&b)
	long := strings.Repeat("ACGTN", 50)
	_ = w.Write("one", []byte(long))
	_ = w.Write("two", []byte("a"))
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	var got []Record
	if err := StreamRecords(context.Background(), &b, func(r Record) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || string(got[0].Seq) != long || string(got[1].Seq) != "a" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestWriterEmptySequenceWritesHeaderOnly(t *testing.T) {
	var b bytes.Buffer
	w := NewWriter(&b)
	if err := w.Write("empty", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if b.String() != ">empty\n" {
		t.Fatalf("got %q", b.String())
	}
}
