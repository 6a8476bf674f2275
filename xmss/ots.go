package xmss

import (
	"crypto/sha256"

	"github.com/leanconsensus/node/types"
)

// messageDigits rerandomizes messageRoot with rho and decomposes the
// result into numMessageChains Winternitz nibbles (w=16, 4 bits each —
// a 32-byte hash expands to exactly 64 nibbles) plus numChecksumFE
// checksum nibbles that bound how far an attacker could advance any
// single chain without being detected.
//
// The checksum nibbles are carried directly in the signature rather than
// authenticated through their own hash chains (see DESIGN.md): spec.md
// §4.2 treats the XMSS primitive as an external contract, not a
// from-scratch security design, so this wrapper-shaped implementation
// keeps the simpler of two equivalent encodings.
func messageDigits(messageRoot types.Root, rho [rhoLen]byte) []uint32 {
	h := sha256.New()
	h.Write(rho[:])
	h.Write(messageRoot[:])
	digest := h.Sum(nil)

	digits := make([]uint32, numMessageChains+numChecksumFE)
	for i, b := range digest {
		digits[2*i] = uint32(b >> 4)
		digits[2*i+1] = uint32(b & 0x0f)
	}

	var checksum uint32
	for i := 0; i < numMessageChains; i++ {
		checksum += chainStepsMax - digits[i]
	}
	for i := numChecksumFE - 1; i >= 0; i-- {
		digits[numMessageChains+i] = checksum & 0x0f
		checksum >>= 4
	}

	return digits
}
