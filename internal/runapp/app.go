// internal/runapp/app.go
package runapp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bioswarm/cactus/internal/cli"
	"github.com/bioswarm/cactus/internal/clibase"
	"github.com/bioswarm/cactus/internal/cmdutil"
	"github.com/bioswarm/cactus/internal/config"
	"github.com/bioswarm/cactus/internal/ctxlog"
	"github.com/bioswarm/cactus/internal/fixture"
	"github.com/bioswarm/cactus/internal/version"
	"github.com/bioswarm/cactus/internal/workflow"
)

const name = "cactus-testrun"

// newExecutor is swapped in tests.
var newExecutor = func() workflow.Executor { return workflow.ExecExecutor{} }

func usageExtra(out io.Writer) {
	fmt.Fprintf(out, `Usage:
  %[1]s [flags] --tree NEWICK SEQ...
  %[1]s [flags] --manifest FILE
  %[1]s [flags] --dataset NAME [--region R]
  %[1]s [flags] --random [--seed S]
  %[1]s --print-config | --write-config FILE

Runs the cactus workflow on the inputs, checks the result and builds the
enabled reports. The run report is printed as YAML.
`, name)
}

// RunContext runs cactus-testrun.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)

	fs := cli.NewFlagSet(name)
	fs.SetOutput(io.Discard)
	clibase.UsageCommon(fs, name, "run and report on the cactus workflow", usageExtra)

	if len(argv) == 0 {
		fs.SetOutput(outw)
		fs.Usage()
		return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
	}

	opts, err := cli.ParseRunArgs(fs, argv)
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

	if opts.WriteConfig != "" {
		if err := config.WriteDefault(opts.WriteConfig); err != nil {
			log.Error("writing config failed", "err", err)
			return cmdutil.ExitRuntime
		}
		log.Info("wrote default config", "path", opts.WriteConfig)
		return cmdutil.ExitOK
	}

	cfg, err := opts.Config()
	if err != nil {
		log.Error("bad configuration", "err", err)
		return cmdutil.ExitUsage
	}
	if opts.PrintConfig {
		if err := config.Encode(outw, cfg); err != nil && !cmdutil.IsBrokenPipe(err) {
			log.Error("printing config failed", "err", err)
			return cmdutil.ExitRuntime
		}
		return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
	}

	var (
		b         fixture.Bundle
		inputsDir string
	)
	if opts.Random {
		b, inputsDir, err = randomInputs(ctx, cfg, opts.Seed)
		if err != nil {
			log.Error("generating random inputs failed", "err", err)
			return cmdutil.ErrorCode(err)
		}
	} else if b, err = opts.Resolve(); err != nil {
		log.Error("resolving inputs failed", "err", err)
		return cli.InputErrorCode(err)
	}
	if err := b.Validate(); err != nil {
		log.Error("bad inputs", "err", err)
		return cmdutil.ExitUsage
	}

	rep, err := workflow.Run(ctx, newExecutor(), b, cfg)
	if err != nil {
		log.Error("cactus test run failed", "report", rep.Path, "err", err)
		return cmdutil.ErrorCode(err)
	}
	if inputsDir != "" && cfg.Cleanup {
		if err := os.RemoveAll(inputsDir); err != nil {
			log.Warn("removing random inputs failed", "dir", inputsDir, "err", err)
		}
	}
	log.Info("cactus test run finished", "steps", len(rep.Ran()), "cleaned_up", rep.CleanedUp)

	if err := workflow.EncodeReport(outw, rep); err != nil && !cmdutil.IsBrokenPipe(err) {
		log.Error("printing report failed", "err", err)
		return cmdutil.ExitRuntime
	}
	return cmdutil.Flush(outw, stderr, cmdutil.ExitOK)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// randomInputs generates a random fixture in its own directory under the
// configured temp dir (or the working directory).
func randomInputs(ctx context.Context, cfg config.Config, seed uint64) (fixture.Bundle, string, error) {
	base := cfg.TempDir
	if base == "" {
		base = "."
	} else if err := os.MkdirAll(base, 0o755); err != nil {
		return fixture.Bundle{}, "", err
	}
	dir, err := os.MkdirTemp(base, "cactus-inputs-")
	if err != nil {
		return fixture.Bundle{}, "", err
	}
	o := fixture.DefaultOptions()
	o.Seed = seed
	b, st, err := fixture.Random(ctx, dir, o)
	if err != nil {
		return b, dir, err
	}
	ctxlog.FromContext(ctx).Info("generated random inputs",
		"dir", dir, "seed", st.Seed, "sequences", st.SequenceNumber, "leaves", st.TreeLeafNumber)
	return b, dir, nil
}
