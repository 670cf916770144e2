// internal/fixture/manifest.go
package fixture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const manifestHeader = "# cactus test fixture: sequences[i] pairs with the i-th tree leaf.\n"

// EncodeManifest writes b as YAML.
func EncodeManifest(w io.Writer, b Bundle) error {
	if _, err := io.WriteString(w, manifestHeader); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return enc.Close()
}

// SaveManifest writes b to path.
func SaveManifest(path string, b Bundle) error {
	var buf bytes.Buffer
	if err := EncodeManifest(&buf, b); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadManifest reads a bundle from path. Relative sequence paths are
// resolved against the manifest's directory. Unknown keys are rejected.
func LoadManifest(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("reading manifest: %w", err)
	}
	var b Bundle
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, s := range b.Sequences {
		if s != "" && !filepath.IsAbs(s) {
			b.Sequences[i] = filepath.Join(base, s)
		}
	}
	if b.Source == "" {
		b.Source = "manifest:" + path
	}
	return b, nil
}
