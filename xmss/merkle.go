package xmss

import (
	"crypto/sha256"
	"encoding/binary"
)

// log2 returns log base 2 of n, which must be a power of two.
func log2(n uint64) uint64 {
	var h uint64
	for n > 1 {
		n >>= 1
		h++
	}
	return h
}

func hashPair(left, right [nodeLen]byte) [nodeLen]byte {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out [nodeLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hashLeaf compresses a one-time key's revealed chain endpoints (the
// "public key" for that leaf, fully walked to the top of every chain)
// into a single Merkle leaf.
func hashLeaf(chainTops [][chainDigestLen]byte) [nodeLen]byte {
	h := sha256.New()
	for _, c := range chainTops {
		h.Write(c[:])
	}
	var out [nodeLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

// leafIndex validates epoch against the keypair's activation window and
// returns its position within the window.
func (kp *Keypair) leafIndex(epoch uint64) (uint64, error) {
	if epoch < kp.activationEpoch || epoch >= kp.activationEpoch+kp.numActiveEpochs {
		return 0, ErrEpochOutOfWindow
	}
	return epoch - kp.activationEpoch, nil
}

// leafHash computes the Merkle leaf for window position idx: derive that
// epoch's one-time chains, walk each to its terminal value, and hash the
// concatenation.
func (kp *Keypair) leafHash(idx uint64) [nodeLen]byte {
	chains := deriveLeafChains(kp.seed, idx)
	tops := make([][chainDigestLen]byte, numMessageChains)
	for i, c := range chains {
		tops[i] = chainValue(c, chainStepsMax)
	}
	return hashLeaf(tops)
}

// chainStepsMax is the number of hash applications that walks any chain
// from its seed to its public terminal value (Winternitz w=16, so each
// chain has 15 intermediate steps beyond the seed).
const chainStepsMax = 15

// merkleRoot builds the full activation-window tree and returns its root.
func (kp *Keypair) merkleRoot() ([nodeLen]byte, error) {
	n := kp.numActiveEpochs
	level := make([][nodeLen]byte, n)
	for i := uint64(0); i < n; i++ {
		level[i] = kp.leafHash(i)
	}
	for len(level) > 1 {
		next := make([][nodeLen]byte, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0], nil
}

// authPath returns the sibling hash at each level from idx's leaf to the
// window's root.
func (kp *Keypair) authPath(idx uint64) ([][nodeLen]byte, error) {
	n := kp.numActiveEpochs
	level := make([][nodeLen]byte, n)
	for i := uint64(0); i < n; i++ {
		level[i] = kp.leafHash(i)
	}
	height := log2(n)
	path := make([][nodeLen]byte, 0, height)
	pos := idx
	for len(level) > 1 {
		sibling := pos ^ 1
		path = append(path, level[sibling])
		next := make([][nodeLen]byte, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
		pos >>= 1
	}
	return path, nil
}

// deriveLeafChains derives the numMessageChains one-time hash-chain
// seeds for window position idx from the keypair's master seed.
func deriveLeafChains(seed [32]byte, idx uint64) [][chainDigestLen]byte {
	var idxBuf [8]byte
	binary.LittleEndian.PutUint64(idxBuf[:], idx)
	chains := make([][chainDigestLen]byte, numMessageChains)
	for i := 0; i < numMessageChains; i++ {
		h := sha256.New()
		h.Write(seed[:])
		h.Write(idxBuf[:])
		var iBuf [4]byte
		binary.LittleEndian.PutUint32(iBuf[:], uint32(i))
		h.Write(iBuf[:])
		copy(chains[i][:], h.Sum(nil))
	}
	return chains
}

// chainValue walks chain forward steps hash applications from its seed.
func chainValue(chain [chainDigestLen]byte, steps int) [chainDigestLen]byte {
	val := chain
	for i := 0; i < steps; i++ {
		h := sha256.Sum256(val[:])
		val = h
	}
	return val
}

// completeChain walks the remaining (chainStepsMax - revealedSteps) hash
// applications to recover what should be the chain's public terminal
// value, given its value after revealedSteps steps.
func completeChain(revealed [chainDigestLen]byte, revealedSteps int) [chainDigestLen]byte {
	return chainValue(revealed, chainStepsMax-revealedSteps)
}
