// internal/verifyapp/app.go
package verifyapp

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bioswarm/cactus/internal/cli"
	"github.com/bioswarm/cactus/internal/clibase"
	"github.com/bioswarm/cactus/internal/cmdutil"
	"github.com/bioswarm/cactus/internal/ctxlog"
	"github.com/bioswarm/cactus/internal/verify"
	"github.com/bioswarm/cactus/internal/version"
)

const name = "cactus-verify"

func usageExtra(out io.Writer) {
	fmt.Fprintf(out, `Usage:
  %[1]s --manifest FILE
  %[1]s --dataset NAME [--region R]
  %[1]s --tree NEWICK SEQ...

Checks that every sequence entry pairs with a tree leaf and that every
record uses only nucleotide symbols. Prints a YAML summary.
`, name)
}

// RunContext runs cactus-verify.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)

	fs := cli.NewFlagSet(name)
	fs.SetOutput(io.Discard)
	clibase.UsageCommon(fs, name, "verify cactus test inputs", usageExtra)

	opts, err := cli.ParseVerifyArgs(fs, argv)
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
		if err := cat.List(outw); err != nil && !cmdutil.IsBrokenPipe(err) {
			log.Error("listing datasets failed", "err", err)
		}
		return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
	}

	b, err := opts.Resolve()
	if err != nil {
		log.Error("resolving inputs failed", "err", err)
		return cli.InputErrorCode(err)
	}

	sum, err := verify.Bundle(ctx, b)
	if err != nil {
		log.Error("verification failed", "source", b.Source, "err", err)
		return cli.InputErrorCode(err)
	}
	log.Info("fixture ok", "source", b.Source, "entries", len(sum.Entries), "records", sum.Records, "bases", sum.Bases)

	if err := encodeSummary(outw, sum); err != nil && !cmdutil.IsBrokenPipe(err) {
		log.Error("printing summary failed", "err", err)
		return cmdutil.ExitRuntime
	}
	return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func encodeSummary(w io.Writer, sum verify.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sum); err != nil {
		return err
	}
	return enc.Close()
}
