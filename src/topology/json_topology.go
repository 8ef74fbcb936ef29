package topology

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const jsonTopologyPath = "topology.json"

// JSONTopology is used to provide topology persistence on disk in the form of
// a JSON file. This allows human operators to draw their own networks.
type JSONTopology struct {
	l    sync.Mutex
	path string
}

// NewJSONTopology creates a new JSONTopology with reference to a base
// directory where the JSON file resides.
func NewJSONTopology(base string) *JSONTopology {
	return NewJSONTopologyFile(filepath.Join(base, jsonTopologyPath))
}

// NewJSONTopologyFile creates a new JSONTopology backed by the given file.
func NewJSONTopologyFile(path string) *JSONTopology {
	return &JSONTopology{
		path: path,
	}
}

// Path returns the file backing the topology.
func (j *JSONTopology) Path() string {
	return j.path
}

// Topology parses the underlying JSON file and validates it.
func (j *JSONTopology) Topology() (*Topology, error) {
	j.l.Lock()
	defer j.l.Unlock()

	// Read the file
	buf, err := os.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	// Check for no topology
	if len(buf) == 0 {
		return nil, nil
	}

	var t Topology
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&t); err != nil {
		return nil, err
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

// Write persists a Topology to the JSON file.
func (j *JSONTopology) Write(t *Topology) error {
	j.l.Lock()
	defer j.l.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	if err := enc.Encode(t); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return err
	}

	// Write out as JSON
	return os.WriteFile(j.path, buf.Bytes(), 0644)
}
