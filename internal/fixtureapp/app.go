// internal/fixtureapp/app.go
package fixtureapp

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/bioswarm/cactus/internal/cli"
	"github.com/bioswarm/cactus/internal/clibase"
	"github.com/bioswarm/cactus/internal/cmdutil"
	"github.com/bioswarm/cactus/internal/ctxlog"
	"github.com/bioswarm/cactus/internal/fixture"
	"github.com/bioswarm/cactus/internal/version"
)

const name = "cactus-fixture"

func usageExtra(out io.Writer) {
	fmt.Fprintf(out, `Usage:
  %[1]s [--sequences N] [--avg-length L] [--leaves K] [--seed S] [--temp-dir DIR] [--manifest FILE]
  %[1]s --dataset NAME [--region R] [--datasets-root DIR] [--manifest FILE]
  %[1]s --list-datasets

Writes sequence directories for a random fixture (or resolves a catalog
dataset) and prints the bundle manifest as YAML.
`, name)
}

// RunContext runs cactus-fixture.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)

	fs := cli.NewFlagSet(name)
	fs.SetOutput(io.Discard)
	clibase.UsageCommon(fs, name, "generate cactus test inputs", usageExtra)

	opts, err := cli.ParseFixtureArgs(fs, argv)
	if err != nil {
		return cmdutil.ParseFailure(fs, err, outw, stderr)
	}
	if opts.Version {
		_, _ = fmt.Fprintf(outw, "%s version %s\n", name, version.Version)
		return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
	}

	log, err := opts.Logger(stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return cmdutil.ExitUsage
	}
	ctx := ctxlog.WithLogger(parent, log)

	if opts.ListDatasets {
		cat, err := cli.LoadCatalog(opts.Catalog)
		if err != nil {
			log.Error("loading catalog failed", "err", err)
			return cmdutil.ExitUsage
		}
		if err := cat.List(outw); err != nil {
			log.Error("listing datasets failed", "err", err)
		}
		return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
	}

	var b fixture.Bundle
	if opts.Dataset != "" {
		cat, err := cli.LoadCatalog(opts.Catalog)
		if err == nil {
			b, err = cat.Resolve(opts.Dataset, opts.Region, opts.DatasetsRoot)
		}
		if err != nil {
			log.Error("resolving dataset failed", "dataset", opts.Dataset, "err", err)
			return cli.InputErrorCode(err)
		}
		log.Info("resolved dataset", "source", b.Source, "entries", len(b.Sequences))
	} else {
		var st fixture.Stats
		b, st, err = fixture.Random(ctx, opts.TempDir, opts.Random())
		if err != nil {
			log.Error("generating fixture failed", "seed", st.Seed, "err", err)
			return cmdutil.ErrorCode(err)
		}
		log.Info("generated fixture",
			"seed", st.Seed,
			"sequences", st.SequenceNumber,
			"avg_length", st.AvgSequenceLength,
			"leaves", st.TreeLeafNumber,
			"files", len(st.Files),
		)
	}

	if opts.Out != "" {
		if err := fixture.SaveManifest(opts.Out, b); err != nil {
			log.Error("writing manifest failed", "path", opts.Out, "err", err)
			return cmdutil.ExitRuntime
		}
		log.Info("wrote manifest", "path", opts.Out)
		return cmdutil.ExitOK
	}
	if err := fixture.EncodeManifest(outw, b); err != nil && !cmdutil.IsBrokenPipe(err) {
		log.Error("writing manifest failed", "err", err)
		return cmdutil.ExitRuntime
	}
	return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
