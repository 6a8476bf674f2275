package xmss

import (
	"testing"

	"github.com/leanconsensus/node/types"
)

func testSeed(b byte) [32]byte {
	var s [32]byte
	s[0] = b
	return s
}

// TestSignVerifyRoundTrip checks a signature produced at a given epoch
// verifies against the matching pubkey and message root.
func TestSignVerifyRoundTrip(t *testing.T) {
	kp, pub, err := KeypairGenerate(testSeed(1), 0, 16)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}

	var root types.Root
	root[0] = 0xaa
	var rho [rhoLen]byte
	rho[0] = 0x01

	sig, err := kp.Sign(root, 3, rho)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(pub, root, 3, sig) {
		t.Fatalf("Verify: expected valid signature")
	}
}

// TestSignatureRebinding matches spec.md §8's rebinding scenario: a
// signature produced for epoch=E verifies at E, but the same signature
// bytes must fail verification at any other epoch.
func TestSignatureRebinding(t *testing.T) {
	kp, pub, err := KeypairGenerate(testSeed(2), 0, 16)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}

	var root types.Root
	root[0] = 0xbb
	var rho [rhoLen]byte

	const signedEpoch = 5
	sig, err := kp.Sign(root, signedEpoch, rho)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !Verify(pub, root, signedEpoch, sig) {
		t.Fatalf("Verify at signed epoch should succeed")
	}
	for _, epoch := range []uint32{0, 1, 4, 6, 15} {
		if epoch == signedEpoch {
			continue
		}
		if Verify(pub, root, epoch, sig) {
			t.Fatalf("Verify at epoch %d should fail (signature bound to epoch %d)", epoch, signedEpoch)
		}
	}
}

// TestVerifyRejectsWrongMessage checks a signature doesn't verify
// against a different message root.
func TestVerifyRejectsWrongMessage(t *testing.T) {
	kp, pub, err := KeypairGenerate(testSeed(3), 0, 16)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}

	var root, otherRoot types.Root
	root[0] = 0x01
	otherRoot[0] = 0x02
	var rho [rhoLen]byte

	sig, err := kp.Sign(root, 0, rho)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if Verify(pub, otherRoot, 0, sig) {
		t.Fatalf("Verify should reject a different message root")
	}
}

// TestSignOutOfWindow checks Sign enforces the activation window.
func TestSignOutOfWindow(t *testing.T) {
	kp, _, err := KeypairGenerate(testSeed(4), 4, 8)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}
	var root types.Root
	var rho [rhoLen]byte

	if _, err := kp.Sign(root, 3, rho); err == nil {
		t.Fatalf("expected error signing before activation epoch")
	}
	if _, err := kp.Sign(root, 12, rho); err == nil {
		t.Fatalf("expected error signing after window closes")
	}
}

// TestSignGuardedRefusesEpochReuse matches spec.md §9's stateful
// last-used-epoch enforcement.
func TestSignGuardedRefusesEpochReuse(t *testing.T) {
	kp, _, err := KeypairGenerate(testSeed(5), 0, 16)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}
	store := NewMemoryEpochStore()
	var root types.Root
	var rho [rhoLen]byte

	if _, err := SignGuarded(kp, store, 0, root, 5, rho); err != nil {
		t.Fatalf("SignGuarded: %v", err)
	}
	if _, err := SignGuarded(kp, store, 0, root, 5, rho); err == nil {
		t.Fatalf("expected error re-signing the same epoch")
	}
	if _, err := SignGuarded(kp, store, 0, root, 3, rho); err == nil {
		t.Fatalf("expected error signing an earlier epoch")
	}
	if _, err := SignGuarded(kp, store, 0, root, 6, rho); err != nil {
		t.Fatalf("signing a strictly later epoch should succeed: %v", err)
	}
}

func TestRegistryVerify(t *testing.T) {
	_, pub0, err := KeypairGenerate(testSeed(6), 0, 16)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}
	reg := NewRegistry([]types.Pubkey{pub0})

	var root types.Root
	if reg.Verify(1, root, 0, types.Signature{}) {
		t.Fatalf("Verify should reject an out-of-range validator index")
	}
}
