// Package config holds the run configuration for a workflow test run: which
// optional stages and reports to produce, where scratch space lives and
// which external executables to call.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the conventional configuration filename.
const DefaultFile = "cactus-test.yaml"

// Tools names the external executables. Each may be a bare name resolved
// through PATH or an absolute path.
type Tools struct {
	// Workflow runs the alignment workflow and fills the output store.
	Workflow string `yaml:"workflow"`
	// JobTreeStatus fails unless every job of the job tree completed.
	JobTreeStatus string `yaml:"job_tree_status"`
	// Check verifies the output store is internally consistent.
	Check string `yaml:"check"`

	TreeViewer      string `yaml:"tree_viewer"`
	AdjacencyViewer string `yaml:"adjacency_viewer"`
	TreeStats       string `yaml:"tree_stats"`
	MAFGenerator    string `yaml:"maf_generator"`

	// GraphViz renders .dot plots to PDF.
	GraphViz string `yaml:"graphviz"`
}

// Config is built once per run and treated as read-only afterwards.
type Config struct {
	// BatchSystem is handed to the workflow's scheduler (default
	// "single_machine").
	BatchSystem string `yaml:"batch_system"`

	BuildTrees     bool `yaml:"build_trees"`
	BuildFaces     bool `yaml:"build_faces"`
	BuildReference bool `yaml:"build_reference"`

	BuildCactusPDF    bool `yaml:"build_cactus_pdf"`
	BuildAdjacencyPDF bool `yaml:"build_adjacency_pdf"`
	MakeTreeStats     bool `yaml:"make_tree_stats"`
	MakeMAFs          bool `yaml:"make_mafs"`

	// Cleanup removes the scratch directories the run created once every
	// step has succeeded.
	Cleanup bool `yaml:"cleanup"`

	// TempDir is the scratch root; empty creates one in the working
	// directory.
	TempDir string `yaml:"temp_dir"`
	// OutputDir receives the output store and reports; empty creates one
	// inside TempDir.
	OutputDir string `yaml:"output_dir"`

	// NetName selects the net inside the store for the report tools. Empty
	// leaves the tools' default.
	NetName string `yaml:"net_name"`

	// ToolLogLevel is passed to the external tools as --logLevel.
	ToolLogLevel string `yaml:"tool_log_level"`

	Tools Tools `yaml:"tools"`
}

// ToolLogLevels lists the levels the external tools understand.
var ToolLogLevels = []string{"CRITICAL", "WARNING", "INFO", "DEBUG"}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		BatchSystem:    "single_machine",
		BuildTrees:     true,
		BuildReference: true,
		Cleanup:        true,
		ToolLogLevel:   "DEBUG",
		Tools: Tools{
			Workflow:        "cactus_workflow.py",
			JobTreeStatus:   "jobTreeStatus",
			Check:           "cactus_check",
			TreeViewer:      "cactus_treeViewer",
			AdjacencyViewer: "cactus_adjacencyGraphViewer",
			TreeStats:       "cactus_treeStats",
			MAFGenerator:    "cactus_MAFGenerator",
			GraphViz:        "dot",
		},
	}
}

// Load reads a YAML file over Default, so keys left out keep their default.
// Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Decode(bytes.NewReader(data), path)
}

// Decode is Load for an already open source; name is used in errors.
func Decode(r io.Reader, name string) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config file %s: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BatchSystem) == "" {
		return errors.New("batch_system must not be empty")
	}
	ok := false
	for _, l := range ToolLogLevels {
		if c.ToolLogLevel == l {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid tool_log_level %q (want one of %s)", c.ToolLogLevel, strings.Join(ToolLogLevels, ", "))
	}
	for name, v := range map[string]string{
		"tools.workflow":        c.Tools.Workflow,
		"tools.job_tree_status": c.Tools.JobTreeStatus,
		"tools.check":           c.Tools.Check,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	if c.BuildCactusPDF && c.Tools.TreeViewer == "" {
		return errors.New("build_cactus_pdf needs tools.tree_viewer")
	}
	if c.BuildAdjacencyPDF && c.Tools.AdjacencyViewer == "" {
		return errors.New("build_adjacency_pdf needs tools.adjacency_viewer")
	}
	if (c.BuildCactusPDF || c.BuildAdjacencyPDF) && c.Tools.GraphViz == "" {
		return errors.New("PDF plots need tools.graphviz")
	}
	if c.MakeTreeStats && c.Tools.TreeStats == "" {
		return errors.New("make_tree_stats needs tools.tree_stats")
	}
	if c.MakeMAFs && c.Tools.MAFGenerator == "" {
		return errors.New("make_mafs needs tools.maf_generator")
	}
	return nil
}

// Encode writes c as YAML.
func Encode(w io.Writer, c Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	var buf bytes.Buffer
	buf.WriteString("# cactus test run configuration\n\n")
	if err := Encode(&buf, Default()); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
