// Package spectests is a YAML fixture-driven harness over the state
// transition and fork-choice packages, grounded on geanlabs-gean's
// spectests package (fc_spectests_test.go, stf_spectests_test.go,
// converters.go). The teacher loads a committed corpus of JSON vectors
// generated offline by an external spec repo and only checks slot- and
// label-level outcomes (head/justified/finalized by root or by a
// label registry, never raw field diffs) — this harness keeps that
// shape but, lacking an external vector generator, builds each
// fixture's blocks in-process through the real state-transition
// pipeline (state.ApplyTransition with ValidateResult=false, exactly
// as scheduler.BuildBlock does) so every hash embedded in a built
// block is always self-consistent with the code under test. Fixtures
// therefore describe scenarios (slots, proposers, vote patterns,
// labels) rather than precomputed hash bytes.
package spectests

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/leanconsensus/node/types"
)

func loadYAMLFixtures(dir string, out func(path string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read fixture dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		if err := out(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}

// --- state transition fixtures ---

// StateTransitionFixture describes a chain of proposals applied in
// order to a fresh genesis state, and the post-state fields expected
// after the last one. ExpectError means the chain is expected to be
// rejected at some point (the first error stops application).
type StateTransitionFixture struct {
	Name        string                  `yaml:"name"`
	Validators  uint64                  `yaml:"validators"`
	Blocks      []FixtureBlockStep      `yaml:"blocks"`
	Expect      StateTransitionExpect   `yaml:"expect"`
	ExpectError bool                    `yaml:"expect_error"`
}

// FixtureBlockStep is one proposal: slot/proposer plus an optional set
// of attestations carried in its body. Attestation targets/sources
// reference earlier blocks by index into the fixture's Blocks slice;
// -1 means genesis.
type FixtureBlockStep struct {
	Slot         types.Slot               `yaml:"slot"`
	Proposer     uint64                   `yaml:"proposer"`
	Attestations []FixtureAttestationStep `yaml:"attestations,omitempty"`
}

type FixtureAttestationStep struct {
	Validator        uint64     `yaml:"validator"`
	SourceSlot       types.Slot `yaml:"source_slot"`
	SourceBlockIndex int        `yaml:"source_block_index"`
	TargetSlot       types.Slot `yaml:"target_slot"`
	TargetBlockIndex int        `yaml:"target_block_index"`
}

type StateTransitionExpect struct {
	Slot                       *types.Slot `yaml:"slot,omitempty"`
	LatestJustifiedSlot        *types.Slot `yaml:"latest_justified_slot,omitempty"`
	LatestFinalizedSlot        *types.Slot `yaml:"latest_finalized_slot,omitempty"`
	HistoricalBlockHashesCount *int        `yaml:"historical_block_hashes_count,omitempty"`
}

// --- fork choice fixtures ---

// ForkChoiceFixture describes a sequence of block/attestation steps fed
// to a fresh forkchoice.Store anchored at genesis, with checks after
// each step. Blocks and checkpoints are addressed by label; "genesis"
// is always the anchor.
type ForkChoiceFixture struct {
	Name       string             `yaml:"name"`
	Validators uint64             `yaml:"validators"`
	Steps      []ForkChoiceStep   `yaml:"steps"`
}

type ForkChoiceStep struct {
	Type      string            `yaml:"type"` // "block" | "attestation"
	Label     string            `yaml:"label,omitempty"`
	Slot      types.Slot        `yaml:"slot,omitempty"`
	Proposer  uint64            `yaml:"proposer,omitempty"`
	Parent    string            `yaml:"parent,omitempty"`
	Seed      int                `yaml:"seed,omitempty"`
	Validator uint64            `yaml:"validator,omitempty"`
	Head      string            `yaml:"head,omitempty"`
	Target    string            `yaml:"target,omitempty"`
	TargetSlot types.Slot       `yaml:"target_slot,omitempty"`
	Source    string            `yaml:"source,omitempty"`
	SourceSlot types.Slot       `yaml:"source_slot,omitempty"`
	Interval    string          `yaml:"interval,omitempty"`
	HasProposal bool            `yaml:"has_proposal,omitempty"`
	Attestations []ForkChoiceBlockAttestation `yaml:"attestations,omitempty"`
	Checks    *ForkChoiceChecks `yaml:"checks,omitempty"`
}

// ForkChoiceBlockAttestation is a vote carried inside a block step's
// body (fromBlock=true in votes.go terms), addressed by label rather
// than by index since fork-choice fixtures name blocks.
type ForkChoiceBlockAttestation struct {
	Validator   uint64     `yaml:"validator"`
	SourceSlot  types.Slot `yaml:"source_slot"`
	SourceLabel string     `yaml:"source_label"`
	TargetSlot  types.Slot `yaml:"target_slot"`
	TargetLabel string     `yaml:"target_label"`
}

type ForkChoiceChecks struct {
	HeadLabel               string   `yaml:"head_label,omitempty"`
	LatestJustifiedLabel    string   `yaml:"latest_justified_label,omitempty"`
	LatestFinalizedLabel    string   `yaml:"latest_finalized_label,omitempty"`
	LexicographicHeadAmong  []string `yaml:"lexicographic_head_among,omitempty"`
}

// --- genesis fixtures ---

// GenesisFixture checks the zero-state shape of a freshly built genesis
// state: spec.md §8 scenario 4's "bit-exact tree-hash of empty
// collections" expressed as field-level assertions rather than a
// hardcoded hash constant, plus determinism across repeated builds.
type GenesisFixture struct {
	Name       string `yaml:"name"`
	Validators uint64 `yaml:"validators"`
	GenesisTime uint64 `yaml:"genesis_time"`
}
