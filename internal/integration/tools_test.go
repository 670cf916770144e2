// internal/integration/tools_test.go
package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Stand-ins for the external cactus tools. Each one only produces the files
// the run expects so the harness can be driven end to end.
const (
	workflowTool = `while [ $# -gt 0 ]; do
  if [ "$1" = "--netDisk" ]; then mkdir -p "$2"; fi
  shift
done
echo "workflow finished"`

	reportTool = `while [ $# -gt 0 ]; do
  if [ "$1" = "--outputFile" ]; then echo report > "$2"; fi
  shift
done`

	graphvizTool = `while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then echo %PDF > "$2"; fi
  shift
done`

	okTool    = `exit 0`
	brokenNet = `echo "net 0 is not consistent" >&2
exit 1`
	slowTool = `exec sleep 5`
)

func write(t *testing.T, fn, data string, perm os.FileMode) string {
	t.Helper()
	if err := os.WriteFile(fn, []byte(data), perm); err != nil {
		t.Fatalf("write %s: %v", fn, err)
	}
	return fn
}

func tool(t *testing.T, dir, name, body string) string {
	t.Helper()
	return write(t, filepath.Join(dir, name), "#!/bin/sh\n"+body+"\n", 0o755)
}

type toolset struct {
	workflow, check string
}

// writeConfig writes a run configuration pointing every tool at a script.
func writeConfig(t *testing.T, ts toolset, extra string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh on PATH")
	}
	dir := t.TempDir()
	if ts.workflow == "" {
		ts.workflow = workflowTool
	}
	if ts.check == "" {
		ts.check = okTool
	}
	cfg := fmt.Sprintf(`tools:
  workflow: %s
  job_tree_status: %s
  check: %s
  tree_viewer: %s
  adjacency_viewer: %s
  tree_stats: %s
  maf_generator: %s
  graphviz: %s
%s`,
		tool(t, dir, "cactus_workflow.sh", ts.workflow),
		tool(t, dir, "jobTreeStatus.sh", okTool),
		tool(t, dir, "cactus_check.sh", ts.check),
		tool(t, dir, "cactus_treeViewer.sh", reportTool),
		tool(t, dir, "cactus_adjacencyGraphViewer.sh", reportTool),
		tool(t, dir, "cactus_treeStats.sh", reportTool),
		tool(t, dir, "cactus_MAFGenerator.sh", reportTool),
		tool(t, dir, "dot.sh", graphvizTool),
		extra,
	)
	return write(t, filepath.Join(dir, "cactus-test.yaml"), cfg, 0o644)
}
