// Package verify checks a fixture on disk: leaf/entry pairing, record
// counts and the nucleotide alphabet of every sequence.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cactus-core/dna"
	"cactus-core/fasta"

	"github.com/bioswarm/cactus/internal/fixture"
)

// ErrInvalidSymbol marks a sequence containing a non-nucleotide byte.
var ErrInvalidSymbol = errors.New("invalid nucleotide symbol")

// sequenceSuffixes are the files picked up when an entry is a directory.
var sequenceSuffixes = []string{
	".fa", ".fasta", ".fa.incomplete", ".fa.gz", ".fasta.gz",
}

// Entry describes one sequence entry of a bundle.
type Entry struct {
	Leaf    string   `yaml:"leaf"`
	Path    string   `yaml:"path"`
	Files   []string `yaml:"files,omitempty"`
	Records int      `yaml:"records"`
	Bases   int64    `yaml:"bases"`
}

// Summary is the result of checking a bundle.
type Summary struct {
	Entries []Entry `yaml:"entries"`
	Records int     `yaml:"records"`
	Bases   int64   `yaml:"bases"`
}

// Bundle validates b and reads every sequence it references.
func Bundle(ctx context.Context, b fixture.Bundle) (Summary, error) {
	var sum Summary
	if err := b.Validate(); err != nil {
		return sum, err
	}
	leaves, _ := b.Leaves()
	for i, p := range b.Sequences {
		e, err := checkEntry(ctx, leaves[i], p)
		if err != nil {
			return sum, err
		}
		sum.Entries = append(sum.Entries, e)
		sum.Records += e.Records
		sum.Bases += e.Bases
	}
	return sum, nil
}

func checkEntry(ctx context.Context, leaf, path string) (Entry, error) {
	e := Entry{Leaf: leaf, Path: path}
	files, err := SequenceFiles(path)
	if err != nil {
		return e, err
	}
	e.Files = files
	for _, f := range files {
		err := fasta.StreamPath(ctx, f, func(r fasta.Record) error {
			if off, ok := dna.Valid(r.Seq); !ok {
				return fmt.Errorf("record %s: %w %q at offset %d", r.ID, ErrInvalidSymbol, r.Seq[off], off)
			}
			if off, ok := dna.Valid(dna.RevComp(r.Seq)); !ok {
				return fmt.Errorf("record %s: reverse complement: %w at offset %d", r.ID, ErrInvalidSymbol, off)
			}
			e.Records++
			e.Bases += int64(len(r.Seq))
			return nil
		})
		if err != nil {
			return e, err
		}
	}
	return e, nil
}

// SequenceFiles returns path itself when it is a file, or the sequence
// files found below it (sorted) when it is a directory.
func SequenceFiles(path string) ([]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{path}, nil
	}
	var out []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, s := range sequenceSuffixes {
			if strings.HasSuffix(d.Name(), s) {
				out = append(out, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
