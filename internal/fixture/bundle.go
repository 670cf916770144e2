// Package fixture builds and validates the inputs of a workflow test run:
// an ordered list of sequence files or directories and a Newick tree whose
// leaves line up with them index for index.
package fixture

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cactus-core/newick"
)

// ErrLeafMismatch is returned when the tree's leaf count differs from the
// number of sequence entries.
var ErrLeafMismatch = errors.New("tree leaves do not match sequence entries")

// ErrDuplicateEntry is returned when two sequence entries name the same path.
var ErrDuplicateEntry = errors.New("duplicate sequence entry")

// Bundle is an input set for one workflow run. Sequences[i] belongs to the
// i-th leaf of Tree, counted left to right.
type Bundle struct {
	Sequences []string `yaml:"sequences"`
	Tree      string   `yaml:"tree"`
	Source    string   `yaml:"source,omitempty"`
}

// Leaves parses the tree and returns its leaf labels.
func (b Bundle) Leaves() ([]string, error) {
	text := strings.TrimSpace(b.Tree)
	if text == "" {
		return nil, errors.New("bundle has no tree")
	}
	t, err := newick.Parse(text)
	if err != nil {
		return nil, err
	}
	return t.Leaves(), nil
}

// Validate checks the tree parses and that leaves and distinct entries
// pair up.
func (b Bundle) Validate() error {
	leaves, err := b.Leaves()
	if err != nil {
		return err
	}
	if len(leaves) != len(b.Sequences) {
		return fmt.Errorf("%w: tree has %d leaves, bundle has %d sequence entries",
			ErrLeafMismatch, len(leaves), len(b.Sequences))
	}
	seen := make(map[string]int, len(b.Sequences))
	for i, s := range b.Sequences {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("sequence entry %d (leaf %q) is empty", i, leaves[i])
		}
		key := filepath.Clean(s)
		if j, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s is used for leaves %q and %q", ErrDuplicateEntry, s, leaves[j], leaves[i])
		}
		seen[key] = i
	}
	return nil
}
