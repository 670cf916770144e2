package runapp

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/bioswarm/cactus/internal/workflow"
)

// fakeTools imitates the external tools' outputs.
type fakeTools struct {
	steps    []string
	failStep string
}

func after(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func (f *fakeTools) Run(_ context.Context, c workflow.Command) error {
	f.steps = append(f.steps, c.Step)
	if c.Step == f.failStep {
		return &workflow.ToolError{Step: c.Step, Command: c.String(), Err: errors.New("exit status 1")}
	}
	switch {
	case c.Step == workflow.StepWorkflow:
		return os.MkdirAll(after(c.Args, "--netDisk"), 0o755)
	case after(c.Args, "--outputFile") != "":
		return os.WriteFile(after(c.Args, "--outputFile"), []byte("x\n"), 0o644)
	case after(c.Args, "-o") != "":
		return os.WriteFile(after(c.Args, "-o"), []byte("x\n"), 0o644)
	}
	return nil
}

func useFake(t *testing.T) *fakeTools {
	t.Helper()
	f := &fakeTools{}
	old := newExecutor
	newExecutor = func() workflow.Executor { return f }
	t.Cleanup(func() { newExecutor = old })
	return f
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	es, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var out []string
	for _, e := range es {
		out = append(out, e.Name())
	}
	return out
}

func TestRandomRunCleansUp(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	f := useFake(t)

	var out, errBuf bytes.Buffer
	code := Run([]string{"--random", "--seed", "7", "--stats", "--log-level", "error"}, &out, &errBuf)
	if code != 0 {
		t.Fatalf("exit %d, stderr=%s", code, errBuf.String())
	}
	if got := entries(t, dir); len(got) != 0 {
		t.Errorf("scratch left behind: %v", got)
	}
	var rep workflow.Report
	if err := yaml.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !rep.CleanedUp || !strings.HasPrefix(rep.Source, "random:seed=7") {
		t.Errorf("report %+v", rep)
	}
	if f.steps[len(f.steps)-1] != workflow.StepTreeStats {
		t.Errorf("steps %v", f.steps)
	}
}

func TestRandomRunNoCleanupKeepsInputs(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	useFake(t)

	var out, errBuf bytes.Buffer
	if code := Run([]string{"--random", "--seed", "3", "--no-cleanup", "-q"}, &out, &errBuf); code != 0 {
		t.Fatalf("exit %d, stderr=%s", code, errBuf.String())
	}
	var inputs, scratch int
	for _, n := range entries(t, dir) {
		switch {
		case strings.HasPrefix(n, "cactus-inputs-"):
			inputs++
		case strings.HasPrefix(n, "cactus-test-"):
			scratch++
		}
	}
	if inputs != 1 || scratch != 1 {
		t.Errorf("want one inputs and one scratch dir, got %v", entries(t, dir))
	}
}

func TestToolFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	f := useFake(t)
	f.failStep = workflow.StepCheck

	seq := filepath.Join(dir, "a.fa")
	var out, errBuf bytes.Buffer
	code := Run([]string{"--tree", "(a);", "--temp-dir", filepath.Join(dir, "tmp"), "--log-format", "json", seq}, &out, &errBuf)
	if code != 3 {
		t.Fatalf("exit %d, want 3", code)
	}
	if !strings.Contains(errBuf.String(), `"msg":"cactus test run failed"`) {
		t.Errorf("stderr %s", errBuf.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "tmp")); err != nil {
		t.Errorf("scratch should be kept after failure: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	useFake(t)
	cases := map[string][]string{
		"no inputs":     {"--stats"},
		"leaf mismatch": {"--tree", "(a,b);", "a.fa"},
		"bad flag":      {"--bogus"},
		"bad dataset":   {"--dataset", "nope", "--datasets-root", "/data"},
		"bad config":    {"--tree", "(a);", "--tool-log-level", "LOUD", "a.fa"},
	}
	for name, argv := range cases {
		var out, errBuf bytes.Buffer
		if code := Run(argv, &out, &errBuf); code != 2 {
			t.Errorf("%s: exit %d, want 2 (stderr=%s)", name, code, errBuf.String())
		}
	}
}

func TestConfigCommands(t *testing.T) {
	var out, errBuf bytes.Buffer
	if code := Run([]string{"--print-config", "--maf"}, &out, &errBuf); code != 0 {
		t.Fatalf("print-config exit %d: %s", code, errBuf.String())
	}
	if !strings.Contains(out.String(), "make_mafs: true") || !strings.Contains(out.String(), "batch_system: single_machine") {
		t.Errorf("printed config:\n%s", out.String())
	}

	path := filepath.Join(t.TempDir(), "cactus-test.yaml")
	if code := Run([]string{"--write-config", path, "-q"}, &out, &errBuf); code != 0 {
		t.Fatalf("write-config exit %d", code)
	}
	if code := Run([]string{"--write-config", path, "-q"}, &out, &errBuf); code != 3 {
		t.Errorf("overwriting config should fail, exit %d", code)
	}
}

func TestNoArgsAndVersion(t *testing.T) {
	var out, errBuf bytes.Buffer
	if code := Run(nil, &out, &errBuf); code != 0 || !strings.Contains(out.String(), "Usage:") {
		t.Errorf("no args: exit %d, out %q", code, out.String())
	}
	out.Reset()
	if code := Run([]string{"--version"}, &out, &errBuf); code != 0 || !strings.HasPrefix(out.String(), "cactus-testrun version") {
		t.Errorf("version: exit %d, out %q", code, out.String())
	}
}
