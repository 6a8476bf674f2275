package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadBootnodes reads an ordered ENR bootnode list, per spec.md §6's
// "Bootnode list (YAML)": a plain array of ENR strings, array index is
// the node ID. Grounded on geanlabs-gean/config/nodes.go's
// LoadBootnodes, which accepts the same plain-string-list shape.
func LoadBootnodes(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootnodes file: %w", err)
	}

	var enrs []string
	if err := yaml.Unmarshal(data, &enrs); err != nil {
		return nil, fmt.Errorf("parse bootnodes yaml: %w", err)
	}
	return enrs, nil
}

// NodeAssignment maps a node name to the validator indices it runs
// locally, per spec.md §6's "validator-to-node assignment file".
type NodeAssignment struct {
	ValidatorIndices []uint64 `yaml:"validators"`
}

// LoadNodeAssignments reads the full node-name -> validator-indices
// mapping from path.
func LoadNodeAssignments(path string) (map[string]NodeAssignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node assignment file: %w", err)
	}

	var assignments map[string]NodeAssignment
	if err := yaml.Unmarshal(data, &assignments); err != nil {
		return nil, fmt.Errorf("parse node assignment yaml: %w", err)
	}
	return assignments, nil
}

// ValidatorIndicesForNode looks up nodeID's validator indices from a
// parsed assignment file, returning an error if nodeID isn't present —
// per spec.md §6, "the CLI selects the active node by name", and an
// unknown name is an operator configuration mistake, not a quiet no-op.
func ValidatorIndicesForNode(assignments map[string]NodeAssignment, nodeID string) ([]uint64, error) {
	na, ok := assignments[nodeID]
	if !ok {
		return nil, fmt.Errorf("config: node id %q not found in assignment file", nodeID)
	}
	return na.ValidatorIndices, nil
}
