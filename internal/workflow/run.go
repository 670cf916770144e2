// Package workflow drives one test run of the alignment workflow: it stages
// scratch space, runs the workflow and its checkers, produces the requested
// reports and cleans up. Every step is a blocking external call; the first
// failure ends the run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bioswarm/cactus/internal/config"
	"github.com/bioswarm/cactus/internal/ctxlog"
	"github.com/bioswarm/cactus/internal/fixture"
)

// Step names, in execution order.
const (
	StepWorkflow      = "workflow"
	StepJobTreeStatus = "job-tree-status"
	StepCheck         = "check"
	StepTreePlot      = "tree-plot"
	StepTreePDF       = "tree-pdf"
	StepAdjacencyPlot = "adjacency-plot"
	StepAdjacencyPDF  = "adjacency-pdf"
	StepTreeStats     = "tree-stats"
	StepMAF           = "maf"
)

// Output file names inside the output directory.
const (
	NetDiskName       = "netDisk"
	JobTreeName       = "jobTree"
	CactusTreeDot     = "cactusTree.dot"
	CactusTreePDF     = "cactusTree.pdf"
	AdjacencyGraphDot = "adjacencyGraph.dot"
	AdjacencyGraphPDF = "adjacencyGraph.pdf"
	CactusStatsFile   = "cactusStats.xml"
	CactusMAFFile     = "cactus.maf"
	ReportFile        = "run.yaml"
)

var now = time.Now

type run struct {
	ex  Executor
	cfg config.Config
	rep *Report

	// createdRoot is the outermost directory made for the temp dir, empty
	// when the temp dir already existed.
	createdRoot string
	scratch     []string
}

// Run executes the workflow on b under cfg. The returned report describes
// every step attempted, including the failing one. Scratch directories are
// only removed after a fully successful run with cfg.Cleanup set.
func Run(ctx context.Context, ex Executor, b fixture.Bundle, cfg config.Config) (Report, error) {
	log := ctxlog.FromContext(ctx)
	log.Info("running cactus workflow test script")
	log.Info("got sequence dirs/files", "sequences", strings.Join(b.Sequences, " "))
	log.Info("got tree", "tree", b.Tree)

	rep := Report{
		Source:    b.Source,
		Tree:      b.Tree,
		Sequences: b.Sequences,
		Started:   now().UTC(),
	}
	if err := cfg.Validate(); err != nil {
		return rep, fmt.Errorf("config: %w", err)
	}
	if err := b.Validate(); err != nil {
		return rep, fmt.Errorf("inputs: %w", err)
	}

	r := &run{ex: ex, cfg: cfg, rep: &rep}
	err := r.execute(ctx, b)
	if err != nil {
		rep.Failed = err.Error()
		log.Error("run failed; scratch space kept", "temp_dir", rep.TempDir, "err", err)
		r.saveReport(ctx)
		return rep, err
	}
	if cfg.Cleanup {
		if err := r.cleanup(ctx); err != nil {
			return rep, fmt.Errorf("cleanup: %w", err)
		}
	} else {
		log.Info("not cleaning up", "temp_dir", rep.TempDir)
	}
	r.saveReport(ctx)
	return rep, nil
}

func (r *run) execute(ctx context.Context, b fixture.Bundle) error {
	log := ctxlog.FromContext(ctx)
	if err := r.stage(ctx); err != nil {
		return err
	}
	rep, cfg := r.rep, r.cfg

	wf := []string{
		"--speciesTree", b.Tree,
		"--netDisk", rep.NetDisk,
		"--jobTree", rep.JobTreeDir,
		"--batchSystem", cfg.BatchSystem,
		"--logLevel", cfg.ToolLogLevel,
	}
	if cfg.BuildTrees {
		wf = append(wf, "--buildTrees")
	}
	if cfg.BuildFaces {
		wf = append(wf, "--buildFaces")
	}
	if cfg.BuildReference {
		wf = append(wf, "--buildReference")
	}
	wf = append(wf, b.Sequences...)
	if err := r.step(ctx, Command{Step: StepWorkflow, Name: cfg.Tools.Workflow, Args: wf}, rep.NetDisk); err != nil {
		return err
	}
	log.Info("ran the workflow")

	if err := r.step(ctx, Command{
		Step: StepJobTreeStatus, Name: cfg.Tools.JobTreeStatus,
		Args: []string{"--jobTree", rep.JobTreeDir, "--failIfNotComplete"},
	}); err != nil {
		return err
	}
	log.Info("checked the job tree dir", "job_tree", rep.JobTreeDir)

	if err := r.step(ctx, Command{
		Step: StepCheck, Name: cfg.Tools.Check,
		Args: append([]string{"--netDisk", rep.NetDisk}, r.netFlags()...),
	}); err != nil {
		return err
	}
	log.Info("checked the output store", "net_disk", rep.NetDisk)

	if err := r.plot(ctx, cfg.BuildCactusPDF, StepTreePlot, StepTreePDF, cfg.Tools.TreeViewer, CactusTreeDot, CactusTreePDF); err != nil {
		return err
	}
	if err := r.plot(ctx, cfg.BuildAdjacencyPDF, StepAdjacencyPlot, StepAdjacencyPDF, cfg.Tools.AdjacencyViewer, AdjacencyGraphDot, AdjacencyGraphPDF); err != nil {
		return err
	}
	if err := r.report(ctx, cfg.MakeTreeStats, StepTreeStats, cfg.Tools.TreeStats, CactusStatsFile); err != nil {
		return err
	}
	return r.report(ctx, cfg.MakeMAFs, StepMAF, cfg.Tools.MAFGenerator, CactusMAFFile)
}

// stage prepares the temp dir, output dir, output store and job tree dir.
func (r *run) stage(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)
	rep, cfg := r.rep, r.cfg

	tempDir := cfg.TempDir
	if tempDir == "" {
		d, err := os.MkdirTemp(".", "cactus-test-")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return err
		}
		tempDir, r.createdRoot = d, abs
	} else {
		top, err := outermostMissing(tempDir)
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		if top != "" {
			if err := os.MkdirAll(tempDir, 0o755); err != nil {
				return fmt.Errorf("creating temp dir: %w", err)
			}
			r.createdRoot = top
		}
	}
	rep.TempDir = tempDir
	log.Info("using the temp dir", "temp_dir", tempDir)

	outputDir := cfg.OutputDir
	if outputDir == "" {
		d, err := os.MkdirTemp(tempDir, "output-")
		if err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		outputDir = d
		r.scratch = append(r.scratch, d)
	} else if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	rep.OutputDir = outputDir
	log.Info("using the output dir", "output_dir", outputDir)

	rep.NetDisk = filepath.Join(outputDir, NetDiskName)
	if err := os.RemoveAll(rep.NetDisk); err != nil {
		return fmt.Errorf("removing previous output store: %w", err)
	}
	log.Info("cleaned up any previous output store", "net_disk", rep.NetDisk)

	jobParent, err := os.MkdirTemp(tempDir, "jobs-")
	if err != nil {
		return fmt.Errorf("creating job tree parent: %w", err)
	}
	r.scratch = append(r.scratch, jobParent)
	rep.JobTreeDir = filepath.Join(jobParent, JobTreeName)
	log.Info("got a job tree dir for the test", "job_tree", rep.JobTreeDir)
	return nil
}

// plot runs a dot-producing viewer and renders the result with graphviz.
func (r *run) plot(ctx context.Context, enabled bool, step, pdfStep, tool, dotName, pdfName string) error {
	log := ctxlog.FromContext(ctx)
	if !enabled {
		r.skip(step)
		r.skip(pdfStep)
		log.Info("not building plot", "step", step)
		return nil
	}
	dot := filepath.Join(r.rep.OutputDir, dotName)
	pdf := filepath.Join(r.rep.OutputDir, pdfName)
	if err := r.step(ctx, r.reportCommand(step, tool, dot), dot); err != nil {
		return err
	}
	if err := r.step(ctx, Command{
		Step: pdfStep, Name: r.cfg.Tools.GraphViz,
		Args: []string{"-Tpdf", "-o", pdf, dot},
	}, pdf); err != nil {
		return err
	}
	log.Info("ran the plot script", "step", step, "pdf", pdf)
	return nil
}

// report runs a single-output report tool.
func (r *run) report(ctx context.Context, enabled bool, step, tool, fileName string) error {
	log := ctxlog.FromContext(ctx)
	if !enabled {
		r.skip(step)
		log.Info("not running report", "step", step)
		return nil
	}
	out := filepath.Join(r.rep.OutputDir, fileName)
	if err := r.step(ctx, r.reportCommand(step, tool, out), out); err != nil {
		return err
	}
	log.Info("ran the report script", "step", step, "output", out)
	return nil
}

func (r *run) reportCommand(step, tool, out string) Command {
	args := []string{"--netDisk", r.rep.NetDisk, "--outputFile", out}
	return Command{Step: step, Name: tool, Args: append(args, r.netFlags()...)}
}

func (r *run) netFlags() []string {
	var f []string
	if r.cfg.NetName != "" {
		f = append(f, "--netName", r.cfg.NetName)
	}
	return append(f, "--logLevel", r.cfg.ToolLogLevel)
}

func (r *run) step(ctx context.Context, c Command, outputs ...string) error {
	start := now()
	err := r.ex.Run(ctx, c)
	r.rep.Steps = append(r.rep.Steps, StepResult{
		Name:    c.Step,
		Argv:    c.Argv(),
		Elapsed: now().Sub(start).Round(time.Millisecond).String(),
		Outputs: outputs,
		Failed:  err != nil,
	})
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return err
		}
		return fmt.Errorf("%s: %w", c.Step, err)
	}
	return nil
}

func (r *run) skip(step string) {
	r.rep.Steps = append(r.rep.Steps, StepResult{Name: step, Skipped: true})
}

// cleanup removes what this run created: the temp dir (with any parents it
// had to make) when the run created it, otherwise only the scratch
// directories made inside it. A caller-supplied output dir is kept, so a
// created temp dir holding one is reduced to its scratch directories.
func (r *run) cleanup(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)
	targets, prune := r.scratch, false
	if r.createdRoot != "" {
		keep, err := r.keepsOutput(r.createdRoot)
		if err != nil {
			return err
		}
		if keep {
			prune = true
		} else {
			targets = []string{r.createdRoot}
		}
	}
	for _, d := range targets {
		if err := os.RemoveAll(d); err != nil {
			return err
		}
	}
	if prune {
		r.pruneEmpty()
	}
	r.rep.CleanedUp = true
	log.Info("cleaned everything up", "removed", strings.Join(targets, " "))
	return nil
}

// pruneEmpty removes the created temp dir and the parents made for it, from
// the inside out, stopping at the first one still holding something.
func (r *run) pruneEmpty() {
	p, err := filepath.Abs(r.rep.TempDir)
	if err != nil {
		return
	}
	for {
		if os.Remove(p) != nil || p == r.createdRoot {
			return
		}
		p = filepath.Dir(p)
	}
}

// keepsOutput reports whether a caller-supplied output dir lies in dir.
func (r *run) keepsOutput(dir string) (bool, error) {
	if r.cfg.OutputDir == "" {
		return false, nil
	}
	return within(r.cfg.OutputDir, dir)
}

// within reports whether path is dir or below it.
func within(path, dir string) (bool, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	d, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(d, p)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

// outermostMissing returns the outermost directory on the way to dir
// (dir included) that does not exist yet, or "" when dir exists.
func outermostMissing(dir string) (string, error) {
	p, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	top := ""
	for {
		_, err := os.Stat(p)
		if err == nil {
			return top, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		top = p
		parent := filepath.Dir(p)
		if parent == p {
			return top, nil
		}
		p = parent
	}
}

func (r *run) saveReport(ctx context.Context) {
	dir := r.rep.OutputDir
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		return
	}
	path := filepath.Join(dir, ReportFile)
	if err := SaveReport(path, *r.rep); err != nil {
		ctxlog.FromContext(ctx).Warn("could not write run report", "path", path, "err", err)
		return
	}
	r.rep.Path = path
}
