// internal/cli/inputs.go
package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bioswarm/cactus/internal/catalog"
	"github.com/bioswarm/cactus/internal/cmdutil"
	"github.com/bioswarm/cactus/internal/fixture"
)

// Inputs names where a command takes its bundle from: a manifest, a catalog
// dataset, or sequence paths plus a tree.
type Inputs struct {
	Manifest     string
	Dataset      string
	Region       int
	DatasetsRoot string
	Catalog      string
	Tree         string
	TreeFile     string
	Sequences    []string
}

func registerInputs(fs *flag.FlagSet, in *Inputs) {
	fs.StringVar(&in.Manifest, "manifest", "", "bundle manifest (YAML) to read inputs from")
	fs.StringVar(&in.Dataset, "dataset", "", "catalog dataset to use (see --list-datasets)")
	fs.IntVar(&in.Region, "region", 0, "dataset region [0]")
	fs.StringVar(&in.DatasetsRoot, "datasets-root", "", "dataset root directory [$"+catalog.RootEnv+"]")
	fs.StringVar(&in.Catalog, "catalog", "", "HCL dataset catalog replacing the built-in one")
	fs.StringVar(&in.Tree, "tree", "", "Newick tree for positional sequence paths")
	fs.StringVar(&in.TreeFile, "tree-file", "", "file whose first line is the Newick tree")
}

// sources counts the input sources selected.
func (in Inputs) sources() int {
	n := 0
	if in.Manifest != "" {
		n++
	}
	if in.Dataset != "" {
		n++
	}
	if len(in.Sequences) > 0 {
		n++
	}
	return n
}

// validate checks the flags that belong together. extra counts input
// sources outside Inputs (such as --random).
func (in Inputs) validate(extra int) error {
	switch n := in.sources() + extra; {
	case n == 0:
		return errors.New("no inputs: give --manifest, --dataset or sequence paths with --tree")
	case n > 1:
		return errors.New("choose exactly one input source")
	}
	hasTree := in.Tree != "" || in.TreeFile != ""
	switch {
	case in.Tree != "" && in.TreeFile != "":
		return errors.New("--tree conflicts with --tree-file")
	case len(in.Sequences) > 0 && !hasTree:
		return errors.New("sequence paths need --tree or --tree-file")
	case len(in.Sequences) == 0 && hasTree:
		return errors.New("--tree/--tree-file only apply to positional sequence paths")
	}
	if in.Dataset == "" && in.Region != 0 {
		return errors.New("--region needs --dataset")
	}
	if in.Region < 0 {
		return errors.New("--region must be ≥ 0")
	}
	return nil
}

// LoadCatalog returns the catalog named by --catalog or the built-in one.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Builtin()
	}
	return catalog.Load(path)
}

// Resolve builds the bundle the flags describe.
func (in Inputs) Resolve() (fixture.Bundle, error) {
	switch {
	case in.Manifest != "":
		return fixture.LoadManifest(in.Manifest)
	case in.Dataset != "":
		cat, err := LoadCatalog(in.Catalog)
		if err != nil {
			return fixture.Bundle{}, err
		}
		return cat.Resolve(in.Dataset, in.Region, in.DatasetsRoot)
	}
	tree := in.Tree
	if in.TreeFile != "" {
		var err error
		if tree, err = readTreeFile(in.TreeFile); err != nil {
			return fixture.Bundle{}, err
		}
	}
	return fixture.Bundle{
		Sequences: append([]string(nil), in.Sequences...),
		Tree:      tree,
		Source:    "args",
	}, nil
}

func readTreeFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading tree: %w", err)
	}
	defer fh.Close()
	line, err := bufio.NewReader(fh).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading tree %s: %w", path, err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s: empty tree file", path)
	}
	return line, nil
}

// InputErrorCode maps input resolution errors to exit codes: unknown
// datasets, bad regions, a missing dataset root, leaf/entry mismatches and
// duplicate entries are usage errors, everything else is a runtime failure.
func InputErrorCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownDataset),
		errors.Is(err, catalog.ErrRegionRange),
		errors.Is(err, catalog.ErrNoDatasetRoot),
		errors.Is(err, fixture.ErrLeafMismatch),
		errors.Is(err, fixture.ErrDuplicateEntry):
		return cmdutil.ExitUsage
	}
	return cmdutil.ErrorCode(err)
}
