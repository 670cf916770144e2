// core/newick/tree.go
package newick

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Tree is a rooted tree node. A node with no children is a leaf.
type Tree struct {
	Label     string
	Length    float64
	HasLength bool
	Children  []*Tree
}

// IsLeaf reports whether t has no children.
func (t *Tree) IsLeaf() bool { return len(t.Children) == 0 }

// Leaves returns leaf labels from left to right.
func (t *Tree) Leaves() []string {
	var out []string
	var walk func(*Tree)
	walk = func(n *Tree) {
		if n.IsLeaf() {
			out = append(out, n.Label)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t)
	return out
}

// String serialises t as Newick text terminated by ';'. Branch lengths are
// printed with six decimals when withLengths is set.
func (t *Tree) String(withLengths bool) string {
	var b strings.Builder
	t.write(&b, withLengths)
	b.WriteByte(';')
	return b.String()
}

func (t *Tree) write(b *strings.Builder, withLengths bool) {
	if !t.IsLeaf() {
		b.WriteByte('(')
		for i, c := range t.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			c.write(b, withLengths)
		}
		b.WriteByte(')')
	}
	b.WriteString(quoteLabel(t.Label))
	if withLengths && t.HasLength {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(t.Length, 'f', 6, 64))
	}
}

func quoteLabel(s string) string {
	if s == "" || !strings.ContainsAny(s, "()[]':;, \t\n") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ErrNoLeaves is returned by RandomBinary for a leaf count below one.
var ErrNoLeaves = errors.New("newick: a tree needs at least one leaf")

// RandomBinary builds a rooted binary tree with exactly leaves leaves.
// Every node, the root included, gets a branch length in
// [0.00001, 0.80001) and is labelled with its pre-order index.
func RandomBinary(r *rand.Rand, leaves int) (*Tree, error) {
	if leaves < 1 {
		return nil, ErrNoLeaves
	}
	var build func(n int) *Tree
	build = func(n int) *Tree {
		t := &Tree{Length: 0.00001 + r.Float64()*0.8, HasLength: true}
		if n == 1 {
			return t
		}
		k := 1 + r.IntN(n-1)
		t.Children = []*Tree{build(k), build(n - k)}
		return t
	}
	root := build(leaves)

	next := 0
	var label func(*Tree)
	label = func(t *Tree) {
		t.Label = strconv.Itoa(next)
		next++
		for _, c := range t.Children {
			label(c)
		}
	}
	label(root)
	return root, nil
}
