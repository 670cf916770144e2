// internal/cli/fixture.go
package cli

import (
	"errors"
	"flag"

	"github.com/bioswarm/cactus/internal/clibase"
	"github.com/bioswarm/cactus/internal/fixture"
)

// FixtureOptions holds cactus-fixture flags.
type FixtureOptions struct {
	clibase.Common

	TempDir   string
	Sequences int
	AvgLength int
	Leaves    int
	Seed      uint64

	// Out is where the manifest goes; empty means stdout.
	Out string

	Dataset      string
	Region       int
	DatasetsRoot string
	Catalog      string
	ListDatasets bool
}

// Random reports the generator options.
func (o FixtureOptions) Random() fixture.Options {
	return fixture.Options{
		SequenceNumber:    o.Sequences,
		AvgSequenceLength: o.AvgLength,
		TreeLeafNumber:    o.Leaves,
		Seed:              o.Seed,
	}
}

// ParseFixtureArgs registers and parses cactus-fixture flags.
func ParseFixtureArgs(fs *flag.FlagSet, argv []string) (FixtureOptions, error) {
	var o FixtureOptions
	clibase.Register(fs, &o.Common)

	fs.StringVar(&o.TempDir, "temp-dir", ".", "directory the random sequence directories are made in [.]")
	fs.IntVar(&o.Sequences, "sequences", -1, "number of sequences (-1 = random in [0,100)) [-1]")
	fs.IntVar(&o.AvgLength, "avg-length", -1, "average sequence length (-1 = random in [1,5000)) [-1]")
	fs.IntVar(&o.Leaves, "leaves", -1, "tree leaves (-1 = random in [1,10)) [-1]")
	fs.Uint64Var(&o.Seed, "seed", 0, "random seed (0 = time based) [0]")
	fs.StringVar(&o.Out, "manifest", "", "write the manifest here instead of stdout")

	fs.StringVar(&o.Dataset, "dataset", "", "resolve a catalog dataset instead of generating")
	fs.IntVar(&o.Region, "region", 0, "dataset region [0]")
	fs.StringVar(&o.DatasetsRoot, "datasets-root", "", "dataset root directory [$SON_TRACE_DATASETS]")
	fs.StringVar(&o.Catalog, "catalog", "", "HCL dataset catalog replacing the built-in one")
	fs.BoolVar(&o.ListDatasets, "list-datasets", false, "list catalog datasets and exit [false]")

	if err := fs.Parse(argv); err != nil {
		return o, err
	}
	if o.Help {
		return o, flag.ErrHelp
	}
	if o.Version {
		return o, nil
	}
	if err := clibase.Validate(&o.Common); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, errors.New("cactus-fixture takes no positional arguments")
	}
	if o.ListDatasets {
		return o, nil
	}

	set := clibase.SetFlags(fs)
	if o.Dataset != "" {
		for _, name := range []string{"sequences", "avg-length", "leaves", "seed", "temp-dir"} {
			if set[name] {
				return o, errors.New("--" + name + " conflicts with --dataset")
			}
		}
		if o.Region < 0 {
			return o, errors.New("--region must be ≥ 0")
		}
		return o, nil
	}
	if set["region"] {
		return o, errors.New("--region needs --dataset")
	}
	if o.Sequences < -1 || o.Leaves < -1 || o.AvgLength < -1 {
		return o, errors.New("--sequences, --avg-length and --leaves must be ≥ -1")
	}
	if o.AvgLength == 0 {
		return o, errors.New("--avg-length must be ≥ 1 (or -1)")
	}
	if o.Leaves == 0 {
		return o, errors.New("--leaves must be ≥ 1 (or -1)")
	}
	if o.TempDir == "" {
		return o, errors.New("--temp-dir must not be empty")
	}
	return o, nil
}
