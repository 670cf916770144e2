// Package catalog resolves captured datasets into fixture bundles. Datasets
// are declared in HCL; sequence and tree paths are template expressions
// evaluated against the datasets root, the region number and the species.
package catalog

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/bioswarm/cactus/internal/fixture"
)

// RootEnv names the environment variable holding the datasets root.
const RootEnv = "SON_TRACE_DATASETS"

var (
	ErrNoDatasetRoot  = errors.New("datasets root not configured (set " + RootEnv + ")")
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrRegionRange    = errors.New("region out of range")
)

//go:embed datasets.hcl
var builtinSource []byte

type fileSchema struct {
	Datasets []*datasetBlock `hcl:"dataset,block"`
}

type datasetBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Regions     int            `hcl:"regions,optional"`
	Species     []string       `hcl:"species"`
	Tree        hcl.Expression `hcl:"tree"`
	Sequence    hcl.Expression `hcl:"sequence"`
}

// Dataset is one declared dataset. Regions == 0 means the dataset has a
// single unnumbered region.
type Dataset struct {
	Name        string
	Description string
	Regions     int
	Species     []string

	tree     hcl.Expression
	sequence hcl.Expression
}

// Catalog is a set of datasets in declaration order.
type Catalog struct {
	byName map[string]*Dataset
	order  []string
}

// Parse decodes a catalog from HCL source.
func Parse(src []byte, filename string) (*Catalog, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var fs fileSchema
	if diags := gohcl.DecodeBody(f.Body, nil, &fs); diags.HasErrors() {
		return nil, diags
	}
	c := &Catalog{byName: map[string]*Dataset{}}
	for _, b := range fs.Datasets {
		if _, dup := c.byName[b.Name]; dup {
			return nil, fmt.Errorf("%s: dataset %q declared twice", filename, b.Name)
		}
		if len(b.Species) == 0 {
			return nil, fmt.Errorf("%s: dataset %q lists no species", filename, b.Name)
		}
		if b.Regions < 0 {
			return nil, fmt.Errorf("%s: dataset %q has negative regions", filename, b.Name)
		}
		c.byName[b.Name] = &Dataset{
			Name:        b.Name,
			Description: b.Description,
			Regions:     b.Regions,
			Species:     b.Species,
			tree:        b.Tree,
			sequence:    b.Sequence,
		}
		c.order = append(c.order, b.Name)
	}
	return c, nil
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(src, path)
}

// Builtin returns the catalog shipped with the binary.
func Builtin() (*Catalog, error) { return Parse(builtinSource, "datasets.hcl") }

// Names lists datasets in declaration order.
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

// Lookup returns the named dataset.
func (c *Catalog) Lookup(name string) (*Dataset, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// List prints one line per dataset.
func (c *Catalog) List(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tREGIONS\tSPECIES\tDESCRIPTION")
	for _, n := range c.order {
		d := c.byName[n]
		regions := "-"
		if d.Regions > 0 {
			regions = fmt.Sprint(d.Regions)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Name, regions, len(d.Species), d.Description)
	}
	return tw.Flush()
}

// Root returns dir when set, otherwise the value of RootEnv.
func Root(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if v := os.Getenv(RootEnv); v != "" {
		return v, nil
	}
	return "", ErrNoDatasetRoot
}

// Resolve builds the bundle for one region of the named dataset. The tree
// text is the first line of the dataset's tree file.
func (c *Catalog) Resolve(name string, region int, root string) (fixture.Bundle, error) {
	d, ok := c.byName[name]
	if !ok {
		return fixture.Bundle{}, fmt.Errorf("%w %q (have %s)", ErrUnknownDataset, name, strings.Join(c.order, ", "))
	}
	root, err := Root(root)
	if err != nil {
		return fixture.Bundle{}, err
	}
	if err := d.checkRegion(region); err != nil {
		return fixture.Bundle{}, err
	}

	vars := map[string]cty.Value{
		"root":   cty.StringVal(root),
		"region": cty.NumberIntVal(int64(region)),
	}
	treePath, err := eval(d.tree, vars)
	if err != nil {
		return fixture.Bundle{}, fmt.Errorf("dataset %s: tree path: %w", name, err)
	}
	tree, err := readFirstLine(treePath)
	if err != nil {
		return fixture.Bundle{}, fmt.Errorf("dataset %s: %w", name, err)
	}

	seqs := make([]string, 0, len(d.Species))
	for _, sp := range d.Species {
		vars["species"] = cty.StringVal(sp)
		p, err := eval(d.sequence, vars)
		if err != nil {
			return fixture.Bundle{}, fmt.Errorf("dataset %s: sequence path for %s: %w", name, sp, err)
		}
		seqs = append(seqs, p)
	}
	src := "dataset:" + name
	if d.Regions > 0 {
		src = fmt.Sprintf("dataset:%s/%d", name, region)
	}
	return fixture.Bundle{Sequences: seqs, Tree: tree, Source: src}, nil
}

func (d *Dataset) checkRegion(region int) error {
	if d.Regions == 0 {
		if region != 0 {
			return fmt.Errorf("%w: dataset %s has no regions, got %d", ErrRegionRange, d.Name, region)
		}
		return nil
	}
	if region < 0 || region >= d.Regions {
		return fmt.Errorf("%w: dataset %s wants 0 <= region < %d, got %d", ErrRegionRange, d.Name, d.Regions, region)
	}
	return nil
}

var functions = map[string]function.Function{
	"format": stdlib.FormatFunc,
	"lower":  stdlib.LowerFunc,
	"upper":  stdlib.UpperFunc,
}

func eval(expr hcl.Expression, vars map[string]cty.Value) (string, error) {
	v, diags := expr.Value(&hcl.EvalContext{Variables: vars, Functions: functions})
	if diags.HasErrors() {
		return "", diags
	}
	v, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	if v.IsNull() || !v.IsKnown() {
		return "", errors.New("expression has no value")
	}
	return v.AsString(), nil
}

func readFirstLine(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	line, err := bufio.NewReader(fh).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return "", fmt.Errorf("%s: empty tree file", path)
	}
	return line, nil
}
