package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGenesisSpecFromValidatorCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.yaml")
	content := "GENESIS_TIME: 1700000000\nVALIDATOR_COUNT: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	spec, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("LoadGenesisSpec: %v", err)
	}
	if spec.GenesisTime != 1700000000 {
		t.Fatalf("GenesisTime = %d, want 1700000000", spec.GenesisTime)
	}
	if len(spec.ValidatorPubkeys) != 4 {
		t.Fatalf("len(ValidatorPubkeys) = %d, want 4", len(spec.ValidatorPubkeys))
	}
}

func TestLoadGenesisSpecGenesisValidatorsWinsOverCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.yaml")
	hexKey := make([]byte, 52)
	for i := range hexKey {
		hexKey[i] = byte(i)
	}
	content := "GENESIS_TIME: 5\nVALIDATOR_COUNT: 10\ngenesis_validators:\n  - \"" + hexEncode(hexKey) + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	spec, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("LoadGenesisSpec: %v", err)
	}
	if len(spec.ValidatorPubkeys) != 1 {
		t.Fatalf("genesis_validators should win over VALIDATOR_COUNT: got %d pubkeys", len(spec.ValidatorPubkeys))
	}
}

func TestLoadGenesisSpecMissingGenesisTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.yaml")
	if err := os.WriteFile(path, []byte("VALIDATOR_COUNT: 2\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadGenesisSpec(path); err == nil {
		t.Fatalf("expected error for missing GENESIS_TIME")
	}
}

func TestDeriveValidatorKeypairIsDeterministic(t *testing.T) {
	_, pub1, err := DeriveValidatorKeypair(3)
	if err != nil {
		t.Fatalf("DeriveValidatorKeypair: %v", err)
	}
	_, pub2, err := DeriveValidatorKeypair(3)
	if err != nil {
		t.Fatalf("DeriveValidatorKeypair: %v", err)
	}
	if pub1 != pub2 {
		t.Fatalf("DeriveValidatorKeypair should be deterministic for the same index")
	}
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0f]
	}
	return string(out)
}
