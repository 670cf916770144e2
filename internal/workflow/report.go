// internal/workflow/report.go
package workflow

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StepResult records one attempted or skipped step.
type StepResult struct {
	Name    string   `yaml:"name"`
	Argv    []string `yaml:"argv,omitempty,flow"`
	Elapsed string   `yaml:"elapsed,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
	Skipped bool     `yaml:"skipped,omitempty"`
	Failed  bool     `yaml:"failed,omitempty"`
}

// Report summarises a run.
type Report struct {
	Source     string       `yaml:"source,omitempty"`
	Tree       string       `yaml:"tree"`
	Sequences  []string     `yaml:"sequences"`
	Started    time.Time    `yaml:"started"`
	TempDir    string       `yaml:"temp_dir"`
	OutputDir  string       `yaml:"output_dir"`
	NetDisk    string       `yaml:"net_disk"`
	JobTreeDir string       `yaml:"job_tree_dir"`
	Steps      []StepResult `yaml:"steps"`
	CleanedUp  bool         `yaml:"cleaned_up"`
	Failed     string       `yaml:"failed,omitempty"`

	// Path is where the report was saved, if anywhere.
	Path string `yaml:"-"`
}

// Ran returns the names of steps that were executed, in order.
func (r Report) Ran() []string {
	var out []string
	for _, s := range r.Steps {
		if !s.Skipped {
			out = append(out, s.Name)
		}
	}
	return out
}

// EncodeReport writes r as YAML.
func EncodeReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// SaveReport writes r as YAML to path.
func SaveReport(path string, r Report) error {
	var buf bytes.Buffer
	if err := EncodeReport(&buf, r); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("parsing report %s: %w", path, err)
	}
	r.Path = path
	return r, nil
}
