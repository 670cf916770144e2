// internal/cli/verify.go
package cli

import (
	"flag"

	"github.com/bioswarm/cactus/internal/clibase"
	"github.com/bioswarm/cactus/internal/cliutil"
)

// VerifyOptions holds cactus-verify flags.
type VerifyOptions struct {
	clibase.Common
	Inputs
	ListDatasets bool
}

// ParseVerifyArgs registers and parses cactus-verify flags. Sequence paths
// may be given as positionals (globs expanded) before or after flags.
func ParseVerifyArgs(fs *flag.FlagSet, argv []string) (VerifyOptions, error) {
	var o VerifyOptions
	clibase.Register(fs, &o.Common)
	registerInputs(fs, &o.Inputs)
	fs.BoolVar(&o.ListDatasets, "list-datasets", false, "list catalog datasets and exit [false]")

	flagArgs, pos := cliutil.SplitFlagsAndPositionals(fs, argv)
	if err := fs.Parse(flagArgs); err != nil {
		return o, err
	}
	if o.Help {
		return o, flag.ErrHelp
	}
	if o.Version || o.ListDatasets {
		return o, nil
	}
	if err := clibase.Validate(&o.Common); err != nil {
		return o, err
	}
	seqs, err := cliutil.ExpandPositionals(append(pos, fs.Args()...))
	if err != nil {
		return o, err
	}
	o.Sequences = seqs
	if err := o.Inputs.validate(0); err != nil {
		return o, err
	}
	return o, nil
}
