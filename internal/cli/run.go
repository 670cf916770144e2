// internal/cli/run.go
package cli

import (
	"errors"
	"flag"

	"github.com/bioswarm/cactus/internal/clibase"
	"github.com/bioswarm/cactus/internal/cliutil"
	"github.com/bioswarm/cactus/internal/config"
)

// RunOptions holds cactus-testrun flags.
type RunOptions struct {
	clibase.Common
	Inputs

	// Random generates the inputs under the temp dir.
	Random bool
	Seed   uint64

	ConfigFile  string
	PrintConfig bool
	WriteConfig string

	BatchSystem    string
	BuildTrees     bool
	BuildFaces     bool
	BuildReference bool
	CactusPDF      bool
	AdjacencyPDF   bool
	TreeStats      bool
	MAF            bool
	NoCleanup      bool
	TempDir        string
	OutputDir      string
	NetName        string
	ToolLogLevel   string

	set map[string]bool
}

// ParseRunArgs registers and parses cactus-testrun flags. Sequence paths
// may be given as positionals (globs expanded) before or after flags.
func ParseRunArgs(fs *flag.FlagSet, argv []string) (RunOptions, error) {
	var o RunOptions
	clibase.Register(fs, &o.Common)
	registerInputs(fs, &o.Inputs)

	fs.BoolVar(&o.Random, "random", false, "generate random inputs under the temp dir [false]")
	fs.Uint64Var(&o.Seed, "seed", 0, "seed for --random (0 = time based) [0]")

	fs.StringVar(&o.ConfigFile, "config", "", "YAML run configuration [built-in defaults]")
	fs.BoolVar(&o.PrintConfig, "print-config", false, "print the effective configuration and exit [false]")
	fs.StringVar(&o.WriteConfig, "write-config", "", "write the default configuration to this file and exit")

	fs.StringVar(&o.BatchSystem, "batch-system", "", "workflow batch system [single_machine]")
	fs.BoolVar(&o.BuildTrees, "build-trees", false, "pass --buildTrees to the workflow")
	fs.BoolVar(&o.BuildFaces, "build-faces", false, "pass --buildFaces to the workflow")
	fs.BoolVar(&o.BuildReference, "build-reference", false, "pass --buildReference to the workflow")
	fs.BoolVar(&o.CactusPDF, "cactus-pdf", false, "plot the cactus tree to PDF")
	fs.BoolVar(&o.AdjacencyPDF, "adjacency-pdf", false, "plot the adjacency graph to PDF")
	fs.BoolVar(&o.TreeStats, "stats", false, "write tree statistics")
	fs.BoolVar(&o.MAF, "maf", false, "export a MAF alignment")
	fs.BoolVar(&o.NoCleanup, "no-cleanup", false, "keep scratch directories")
	fs.StringVar(&o.TempDir, "temp-dir", "", "scratch directory [new cactus-test-* in the working dir]")
	fs.StringVar(&o.OutputDir, "output-dir", "", "where the output store and reports go [scratch]")
	fs.StringVar(&o.NetName, "net-name", "", "net passed to the check and report tools")
	fs.StringVar(&o.ToolLogLevel, "tool-log-level", "", "log level for the external tools [DEBUG]")

	flagArgs, pos := cliutil.SplitFlagsAndPositionals(fs, argv)
	if err := fs.Parse(flagArgs); err != nil {
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
	o.set = clibase.SetFlags(fs)

	seqs, err := cliutil.ExpandPositionals(append(pos, fs.Args()...))
	if err != nil {
		return o, err
	}
	o.Sequences = seqs

	if o.PrintConfig && o.WriteConfig != "" {
		return o, errors.New("--print-config conflicts with --write-config")
	}
	if o.PrintConfig || o.WriteConfig != "" {
		return o, nil
	}
	random := 0
	if o.Random {
		random = 1
	} else if o.set["seed"] {
		return o, errors.New("--seed needs --random")
	}
	if err := o.Inputs.validate(random); err != nil {
		return o, err
	}
	return o, nil
}

// Apply overlays the flags given on the command line onto cfg.
func (o RunOptions) Apply(cfg config.Config) config.Config {
	if o.set["batch-system"] {
		cfg.BatchSystem = o.BatchSystem
	}
	if o.set["build-trees"] {
		cfg.BuildTrees = o.BuildTrees
	}
	if o.set["build-faces"] {
		cfg.BuildFaces = o.BuildFaces
	}
	if o.set["build-reference"] {
		cfg.BuildReference = o.BuildReference
	}
	if o.set["cactus-pdf"] {
		cfg.BuildCactusPDF = o.CactusPDF
	}
	if o.set["adjacency-pdf"] {
		cfg.BuildAdjacencyPDF = o.AdjacencyPDF
	}
	if o.set["stats"] {
		cfg.MakeTreeStats = o.TreeStats
	}
	if o.set["maf"] {
		cfg.MakeMAFs = o.MAF
	}
	if o.set["no-cleanup"] {
		cfg.Cleanup = !o.NoCleanup
	}
	if o.set["temp-dir"] {
		cfg.TempDir = o.TempDir
	}
	if o.set["output-dir"] {
		cfg.OutputDir = o.OutputDir
	}
	if o.set["net-name"] {
		cfg.NetName = o.NetName
	}
	if o.set["tool-log-level"] {
		cfg.ToolLogLevel = o.ToolLogLevel
	}
	return cfg
}

// Config loads --config (or the defaults) and applies the flag overrides.
// The result is validated.
func (o RunOptions) Config() (config.Config, error) {
	cfg := config.Default()
	if o.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(o.ConfigFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg = o.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
