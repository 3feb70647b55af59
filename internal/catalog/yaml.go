package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/movies.yml
var defaultSeed []byte

// DecodeYAML reads a snapshot from YAML. Unknown keys are rejected.
func DecodeYAML(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil && err != io.EOF {
		return Snapshot{}, fmt.Errorf("failed to decode catalog seed: %w", err)
	}
	return snap, nil
}

// LoadYAML reads and links a catalog seed
func LoadYAML(r io.Reader) (*Store, error) {
	snap, err := DecodeYAML(r)
	if err != nil {
		return nil, err
	}
	return snap.Build()
}

// LoadYAMLFile reads and links the catalog seed at path
func LoadYAMLFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog seed: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadDefault links the bundled demo catalog
func LoadDefault() (*Store, error) {
	return LoadYAML(bytes.NewReader(defaultSeed))
}

// EncodeYAML writes a snapshot as YAML
func EncodeYAML(w io.Writer, snap Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode catalog seed: %w", err)
	}
	return enc.Close()
}
