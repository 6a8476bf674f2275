// Package xmss implements the PQSig contract from spec.md §4.2: a
// stateful, hash-based signature scheme (generalized XMSS) exposing
// exactly three operations — key generation, epoch-indexed signing, and
// verification. spec.md treats the concrete primitive as external
// ("the implementation may wrap an external primitive"); this package is
// a from-scratch, pure-Go construction in that primitive's shape, built
// on crypto/sha256, since the pack's only working hash-based-signature
// code (morelucks-gean/leansig) is a cgo binding to a Rust library this
// workspace cannot fetch or build, and wyf-ACCEPT-eth2030/pkg/crypto/pqc
// is a sibling from-scratch construction rather than an importable
// dependency. The chain/checksum/Merkle-path shapes below follow that
// sibling construction's structure; see DESIGN.md for the byte layout
// derivation.
package xmss

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/leanconsensus/node/params"
	"github.com/leanconsensus/node/types"
)

// Per-signature byte layout (sums to types.XMSSSignatureSize = 3112):
//
//	rho                28 bytes   = RandLenFE(7) * FieldElementBytes(4)
//	auth path        1024 bytes   = LogLifetime(32) levels * 32-byte nodes
//	message chains   2048 bytes   = HashLenFE(8) FEs * 8 nibbles/FE * 32-byte digest
//	checksum FEs       12 bytes   = 3 checksum FEs * FieldElementBytes(4)
const (
	rhoLen           = int(params.XMSSRandLenFE * params.XMSSFieldElementBytes)
	authPathHeight   = int(params.XMSSLogLifetime)
	nodeLen          = sha256.Size
	nibblesPerFE     = 8 // 32-bit field element, 4 bits/nibble (Winternitz w=16)
	numMessageChains = int(params.XMSSHashLenFE) * nibblesPerFE
	chainDigestLen   = sha256.Size
	numChecksumFE    = 3
	checksumLen      = numChecksumFE * int(params.XMSSFieldElementBytes)

	authPathOff  = rhoLen
	chainsOff    = authPathOff + authPathHeight*nodeLen
	checksumOff  = chainsOff + numMessageChains*chainDigestLen
	signatureLen = checksumOff + checksumLen

	pubkeyRootOff  = 0
	pubkeyStartOff = 32
	pubkeyCountOff = 36
)

func init() {
	if signatureLen != types.XMSSSignatureSize {
		panic(fmt.Sprintf("xmss: derived signature length %d != types.XMSSSignatureSize %d", signatureLen, types.XMSSSignatureSize))
	}
}

var (
	// ErrEpochOutOfWindow is returned by Sign when epoch falls outside
	// [activationEpoch, activationEpoch+numActiveEpochs).
	ErrEpochOutOfWindow = errors.New("xmss: epoch outside activation window")
	// ErrEpochReused is returned by SignGuarded when epoch <= the store's
	// last-used epoch, per spec.md §9's stateful-signature requirement.
	ErrEpochReused = errors.New("xmss: epoch already used")
	// ErrInvalidWindow is returned by KeypairGenerate when numActiveEpochs
	// is not a power of two (the activation window is a balanced Merkle
	// tree of one-time keys).
	ErrInvalidWindow = errors.New("xmss: numActiveEpochs must be a power of two")
	// ErrInvalidSignatureLength is returned by Verify for malformed input.
	ErrInvalidSignatureLength = errors.New("xmss: invalid signature length")
	// ErrInvalidPubkeyLength is returned by Verify for malformed input.
	ErrInvalidPubkeyLength = errors.New("xmss: invalid pubkey length")
)

// Keypair is the secret material for one validator's signing key: a seed
// deriving every one-time key in the activation window, plus the window
// bounds. The Merkle tree of one-time public keys is not precomputed; it
// is rebuilt from seed on demand (by Sign, and by KeypairGenerate to
// compute the pubkey), trading CPU for not holding the whole tree resident — the
// window is at most params.XMSSLogLifetime levels deep, so this stays
// cheap relative to one signing operation's own hash-chain cost.
type Keypair struct {
	seed            [32]byte
	activationEpoch uint64
	numActiveEpochs uint64
}

// KeypairGenerate builds a new Keypair active over
// [activationEpoch, activationEpoch+numActiveEpochs), per spec.md §4.2's
// keypair_generate(seed, activation_epoch, num_active_epochs) contract.
func KeypairGenerate(seed [32]byte, activationEpoch, numActiveEpochs uint64) (*Keypair, types.Pubkey, error) {
	if numActiveEpochs == 0 || numActiveEpochs&(numActiveEpochs-1) != 0 {
		return nil, types.Pubkey{}, ErrInvalidWindow
	}
	kp := &Keypair{seed: seed, activationEpoch: activationEpoch, numActiveEpochs: numActiveEpochs}
	pub, err := kp.pubkey()
	if err != nil {
		return nil, types.Pubkey{}, err
	}
	return kp, pub, nil
}

func (kp *Keypair) pubkey() (types.Pubkey, error) {
	root, err := kp.merkleRoot()
	if err != nil {
		return types.Pubkey{}, err
	}
	var pub types.Pubkey
	copy(pub[pubkeyRootOff:pubkeyRootOff+32], root[:])
	binary.LittleEndian.PutUint32(pub[pubkeyStartOff:pubkeyStartOff+4], uint32(kp.activationEpoch))
	binary.LittleEndian.PutUint32(pub[pubkeyCountOff:pubkeyCountOff+4], uint32(kp.numActiveEpochs))
	return pub, nil
}

// Sign produces a Signature over messageRoot at epoch, per spec.md
// §4.2's sign(keypair, message_root, epoch) contract. Callers are
// responsible for enforcing the stateful last-used-epoch rule via
// LastUsedEpochStore before calling Sign; Sign itself only enforces the
// activation-window bound, since it has no access to signing history.
func (kp *Keypair) Sign(messageRoot types.Root, epoch uint32, rho [rhoLen]byte) (types.Signature, error) {
	idx, err := kp.leafIndex(uint64(epoch))
	if err != nil {
		return types.Signature{}, err
	}

	digits := messageDigits(messageRoot, rho)
	chains := deriveLeafChains(kp.seed, idx)

	var sig types.Signature
	copy(sig[0:rhoLen], rho[:])

	path, err := kp.authPath(idx)
	if err != nil {
		return types.Signature{}, err
	}
	for i, node := range path {
		copy(sig[authPathOff+i*nodeLen:authPathOff+(i+1)*nodeLen], node[:])
	}
	// Levels above the window's actual height (len(path) < authPathHeight
	// whenever numActiveEpochs < 2^LogLifetime) stay zero in sig; Verify
	// recomputes the same window height from the pubkey and never reads
	// past it.

	for i := 0; i < numMessageChains; i++ {
		val := chainValue(chains[i], int(digits[i]))
		copy(sig[chainsOff+i*chainDigestLen:chainsOff+(i+1)*chainDigestLen], val[:])
	}
	for i := 0; i < numChecksumFE; i++ {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], digits[numMessageChains+i])
		copy(sig[checksumOff+i*4:checksumOff+(i+1)*4], b[:])
	}

	return sig, nil
}

// Verify checks sig against pubkeyBytes, messageRoot and epoch, per
// spec.md §4.2's verify(pubkey_bytes, message_root, epoch, signature_bytes)
// contract.
func Verify(pubkeyBytes types.Pubkey, messageRoot types.Root, epoch uint32, sig types.Signature) bool {
	activationEpoch := uint64(binary.LittleEndian.Uint32(pubkeyBytes[pubkeyStartOff : pubkeyStartOff+4]))
	numActiveEpochs := uint64(binary.LittleEndian.Uint32(pubkeyBytes[pubkeyCountOff : pubkeyCountOff+4]))
	if numActiveEpochs == 0 || numActiveEpochs&(numActiveEpochs-1) != 0 {
		return false
	}
	if uint64(epoch) < activationEpoch || uint64(epoch) >= activationEpoch+numActiveEpochs {
		return false
	}
	idx := uint64(epoch) - activationEpoch
	height := log2(numActiveEpochs)

	var rho [rhoLen]byte
	copy(rho[:], sig[0:rhoLen])
	digits := messageDigits(messageRoot, rho)

	leafDigests := make([][chainDigestLen]byte, numMessageChains)
	for i := 0; i < numMessageChains; i++ {
		var got [chainDigestLen]byte
		copy(got[:], sig[chainsOff+i*chainDigestLen:chainsOff+(i+1)*chainDigestLen])
		leafDigests[i] = completeChain(got, int(digits[i]))
	}
	checksumDigits := make([]uint32, numChecksumFE)
	for i := 0; i < numChecksumFE; i++ {
		checksumDigits[i] = binary.LittleEndian.Uint32(sig[checksumOff+i*4 : checksumOff+(i+1)*4])
	}
	for i, d := range checksumDigits {
		if d != digits[numMessageChains+i] {
			return false
		}
	}

	leaf := hashLeaf(leafDigests)

	node := leaf
	for level := 0; level < int(height); level++ {
		var sibling [nodeLen]byte
		copy(sibling[:], sig[authPathOff+level*nodeLen:authPathOff+(level+1)*nodeLen])
		if idx&1 == 0 {
			node = hashPair(node, sibling)
		} else {
			node = hashPair(sibling, node)
		}
		idx >>= 1
	}

	var root [32]byte
	copy(root[:], pubkeyBytes[pubkeyRootOff:pubkeyRootOff+32])
	return node == root
}
