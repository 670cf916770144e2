package cliutil

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitFlagsAndPositionals(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	fs.Bool("maf", false, "")
	fs.String("tree", "", "")
	flagArgs, posArgs := SplitFlagsAndPositionals(fs, []string{
		"HUMAN.fa", "--maf", "--tree", "(a,b);", "CHIMP.fa", "--log-level=debug", "--", "--odd-name.fa",
	})
	if diff := cmp.Diff([]string{"--maf", "--tree", "(a,b);", "--log-level=debug"}, flagArgs); diff != "" {
		t.Fatalf("flags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"HUMAN.fa", "CHIMP.fa", "--odd-name.fa"}, posArgs); diff != "" {
		t.Fatalf("positionals (-want +got):\n%s", diff)
	}
}

func TestExpandPositionals(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.fa")
	b := filepath.Join(dir, "b.fa")
	_ = os.WriteFile(a, []byte(">a\nA\n"), 0o644)
	_ = os.WriteFile(b, []byte(">b\nA\n"), 0o644)
	got, err := ExpandPositionals([]string{"first", filepath.Join(dir, "*.fa")})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if diff := cmp.Diff([]string{"first", a, b}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if _, err := ExpandPositionals([]string{filepath.Join(dir, "*.none")}); err == nil {
		t.Fatalf("expected no-match error")
	}
}
