package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bioswarm/cactus/internal/config"
	"github.com/bioswarm/cactus/internal/fixture"
)

// fakeExec records commands and imitates the tools' file outputs.
type fakeExec struct {
	calls    []Command
	failStep string
	err      error
	onRun    func(Command) error
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func (f *fakeExec) Run(_ context.Context, c Command) error {
	f.calls = append(f.calls, c)
	if f.onRun != nil {
		if err := f.onRun(c); err != nil {
			return err
		}
	}
	if c.Step == f.failStep {
		return f.err
	}
	switch {
	case c.Step == StepWorkflow:
		return os.MkdirAll(argAfter(c.Args, "--netDisk"), 0o755)
	case argAfter(c.Args, "--outputFile") != "":
		return os.WriteFile(argAfter(c.Args, "--outputFile"), []byte("report\n"), 0o644)
	case argAfter(c.Args, "-o") != "":
		return os.WriteFile(argAfter(c.Args, "-o"), []byte("%PDF\n"), 0o644)
	}
	return nil
}

func (f *fakeExec) steps() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Step)
	}
	return out
}

func bundle() fixture.Bundle {
	return fixture.Bundle{
		Sequences: []string{"/seq/HUMAN", "/seq/CHIMP", "/seq/MOUSE"},
		Tree:      "((HUMAN:0.1,CHIMP:0.1):0.2,MOUSE:0.3);",
		Source:    "test",
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunDefaultsCleansUp(t *testing.T) {
	cfg := config.Default()
	cfg.TempDir = filepath.Join(t.TempDir(), "scratch")
	fx := &fakeExec{}

	rep, err := Run(context.Background(), fx, bundle(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{StepWorkflow, StepJobTreeStatus, StepCheck}
	if diff := cmp.Diff(want, fx.steps()); diff != "" {
		t.Fatalf("steps (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, rep.Ran()); diff != "" {
		t.Fatalf("report steps (-want +got):\n%s", diff)
	}

	wf := fx.calls[0]
	if wf.Name != "cactus_workflow.py" {
		t.Fatalf("workflow tool %q", wf.Name)
	}
	for _, f := range []string{"--buildTrees", "--buildReference"} {
		if !slices.Contains(wf.Args, f) {
			t.Errorf("workflow args lack %s: %v", f, wf.Args)
		}
	}
	if slices.Contains(wf.Args, "--buildFaces") {
		t.Errorf("--buildFaces passed by default")
	}
	if got := argAfter(wf.Args, "--speciesTree"); got != bundle().Tree {
		t.Errorf("species tree %q", got)
	}
	if got := argAfter(wf.Args, "--batchSystem"); got != "single_machine" {
		t.Errorf("batch system %q", got)
	}
	if tail := wf.Args[len(wf.Args)-3:]; !slices.Equal(tail, bundle().Sequences) {
		t.Errorf("sequences not last in argv: %v", tail)
	}
	if got := argAfter(fx.calls[1].Args, "--jobTree"); got != rep.JobTreeDir || filepath.Base(got) != JobTreeName {
		t.Errorf("job tree dir %q (report %q)", got, rep.JobTreeDir)
	}
	if rep.NetDisk != filepath.Join(rep.OutputDir, NetDiskName) {
		t.Errorf("net disk %q not under output %q", rep.NetDisk, rep.OutputDir)
	}

	if !rep.CleanedUp || exists(cfg.TempDir) {
		t.Fatalf("temp dir %s should be gone (cleaned=%v)", cfg.TempDir, rep.CleanedUp)
	}
}

func TestRunAllReportsNoCleanup(t *testing.T) {
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	cfg.Cleanup = false
	cfg.BuildCactusPDF = true
	cfg.BuildAdjacencyPDF = true
	cfg.MakeTreeStats = true
	cfg.MakeMAFs = true
	cfg.NetName = "0"
	fx := &fakeExec{}

	rep, err := Run(context.Background(), fx, bundle(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{
		StepWorkflow, StepJobTreeStatus, StepCheck,
		StepTreePlot, StepTreePDF, StepAdjacencyPlot, StepAdjacencyPDF,
		StepTreeStats, StepMAF,
	}
	if diff := cmp.Diff(want, fx.steps()); diff != "" {
		t.Fatalf("steps (-want +got):\n%s", diff)
	}
	for _, name := range []string{CactusTreeDot, CactusTreePDF, AdjacencyGraphDot, AdjacencyGraphPDF, CactusStatsFile, CactusMAFFile, ReportFile} {
		if !exists(filepath.Join(rep.OutputDir, name)) {
			t.Errorf("missing %s", name)
		}
	}
	maf := fx.calls[len(fx.calls)-1]
	if argAfter(maf.Args, "--netName") != "0" || argAfter(maf.Args, "--netDisk") != rep.NetDisk {
		t.Errorf("maf args %v", maf.Args)
	}
	pdf := fx.calls[4]
	if pdf.Name != "dot" || pdf.Args[0] != "-Tpdf" {
		t.Errorf("graphviz call %v", pdf.Argv())
	}
	if rep.CleanedUp || !exists(rep.NetDisk) {
		t.Fatalf("outputs should be kept")
	}

	saved, err := LoadReport(filepath.Join(rep.OutputDir, ReportFile))
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if diff := cmp.Diff(want, saved.Ran()); diff != "" {
		t.Fatalf("saved steps (-want +got):\n%s", diff)
	}
}

func TestRunSkippedStepsAreRecorded(t *testing.T) {
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	cfg.MakeMAFs = true
	rep, err := Run(context.Background(), &fakeExec{}, bundle(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var skipped []string
	for _, s := range rep.Steps {
		if s.Skipped {
			skipped = append(skipped, s.Name)
		}
	}
	want := []string{StepTreePlot, StepTreePDF, StepAdjacencyPlot, StepAdjacencyPDF, StepTreeStats}
	if diff := cmp.Diff(want, skipped); diff != "" {
		t.Fatalf("skipped (-want +got):\n%s", diff)
	}
}

func TestRunFailureStopsAndKeepsScratch(t *testing.T) {
	boom := errors.New("boom")
	cfg := config.Default()
	cfg.TempDir = filepath.Join(t.TempDir(), "scratch")
	cfg.MakeMAFs = true
	fx := &fakeExec{failStep: StepCheck, err: boom}

	rep, err := Run(context.Background(), fx, bundle(), cfg)
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), StepCheck+":") {
		t.Fatalf("error lacks step name: %v", err)
	}
	if diff := cmp.Diff([]string{StepWorkflow, StepJobTreeStatus, StepCheck}, fx.steps()); diff != "" {
		t.Fatalf("steps (-want +got):\n%s", diff)
	}
	if !exists(cfg.TempDir) || rep.CleanedUp {
		t.Fatalf("scratch must survive a failed run")
	}
	saved, err := LoadReport(filepath.Join(rep.OutputDir, ReportFile))
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if saved.Failed == "" || !saved.Steps[len(saved.Steps)-1].Failed {
		t.Fatalf("failure not recorded: %+v", saved)
	}
}

func TestRunRejectsBadInputs(t *testing.T) {
	b := bundle()
	b.Sequences = b.Sequences[:2]
	fx := &fakeExec{}
	cfg := config.Default()
	cfg.TempDir = filepath.Join(t.TempDir(), "never")
	_, err := Run(context.Background(), fx, b, cfg)
	if !errors.Is(err, fixture.ErrLeafMismatch) {
		t.Fatalf("want ErrLeafMismatch, got %v", err)
	}
	if len(fx.calls) != 0 || exists(cfg.TempDir) {
		t.Fatalf("nothing should run or be created")
	}
}

func TestRunClearsPreviousStore(t *testing.T) {
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	stale := filepath.Join(cfg.OutputDir, NetDiskName, "stale")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	fx := &fakeExec{onRun: func(c Command) error {
		if c.Step == StepWorkflow && exists(stale) {
			return errors.New("stale store still present")
		}
		return nil
	}}
	rep, err := Run(context.Background(), fx, bundle(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Caller-provided temp and output dirs outlive cleanup; the job tree
	// scratch does not.
	if !exists(cfg.TempDir) || !exists(cfg.OutputDir) {
		t.Fatalf("caller directories removed")
	}
	if exists(filepath.Dir(rep.JobTreeDir)) {
		t.Fatalf("job tree scratch %s left behind", rep.JobTreeDir)
	}
}

func TestRunDefaultTempDirInWorkingDir(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	cfg := config.Default()
	cfg.Cleanup = false
	rep, err := Run(context.Background(), &fakeExec{}, bundle(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Dir(rep.TempDir) != "." || !strings.HasPrefix(filepath.Base(rep.TempDir), "cactus-test-") {
		t.Fatalf("temp dir %q", rep.TempDir)
	}
	if filepath.Dir(rep.OutputDir) != rep.TempDir {
		t.Fatalf("output dir %q not inside temp dir", rep.OutputDir)
	}
	entries, _ := os.ReadDir(wd)
	if len(entries) != 1 {
		t.Fatalf("want one scratch dir in %s, got %d", wd, len(entries))
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.BatchSystem = ""
	if _, err := Run(context.Background(), &fakeExec{}, bundle(), cfg); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestRunCleanupKeepsCallerOutputInsideTempDir(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.TempDir = filepath.Join(base, "scratch")
	cfg.OutputDir = filepath.Join(cfg.TempDir, "results")
	cfg.NetName = "0"
	cfg.MakeMAFs = true
	fx := &fakeExec{}

	rep, err := Run(context.Background(), fx, bundle(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !rep.CleanedUp {
		t.Fatalf("cleanup did not run")
	}
	for _, f := range []string{CactusMAFFile, ReportFile} {
		if !exists(filepath.Join(cfg.OutputDir, f)) {
			t.Errorf("%s removed from the caller's output dir", f)
		}
	}
	if exists(filepath.Dir(rep.JobTreeDir)) {
		t.Errorf("job tree scratch %s left behind", filepath.Dir(rep.JobTreeDir))
	}

	var check Command
	for _, c := range fx.calls {
		if c.Step == StepCheck {
			check = c
		}
	}
	want := []string{"--netDisk", rep.NetDisk, "--netName", "0", "--logLevel", "DEBUG"}
	if diff := cmp.Diff(want, check.Args); diff != "" {
		t.Errorf("check args (-want +got):\n%s", diff)
	}
}

func TestRunCleanupRemovesCreatedParents(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.TempDir = filepath.Join(base, "a", "b")

	if _, err := Run(context.Background(), &fakeExec{}, bundle(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	if exists(filepath.Join(base, "a")) {
		t.Errorf("intermediate dir %s made by the run is left behind", filepath.Join(base, "a"))
	}
	if !exists(base) {
		t.Errorf("pre-existing dir %s removed", base)
	}
}

func TestRunCleanupPrunesAroundCallerOutput(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.TempDir = filepath.Join(base, "a", "b")
	cfg.OutputDir = filepath.Join(base, "a", "out")

	if _, err := Run(context.Background(), &fakeExec{}, bundle(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	if exists(cfg.TempDir) {
		t.Errorf("emptied temp dir %s left behind", cfg.TempDir)
	}
	if !exists(filepath.Join(cfg.OutputDir, ReportFile)) {
		t.Errorf("caller output dir lost its report")
	}
}

func TestRunCleanupKeepsExistingTempDir(t *testing.T) {
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	marker := filepath.Join(cfg.TempDir, "keep.txt")
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(context.Background(), &fakeExec{}, bundle(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	entries, err := os.ReadDir(cfg.TempDir)
	if err != nil {
		t.Fatalf("temp dir removed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "keep.txt" {
		t.Errorf("want only keep.txt left, got %d entries", len(entries))
	}
}
