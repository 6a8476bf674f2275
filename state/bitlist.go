package state

import "github.com/OffchainLabs/go-bitfield"

// Package-local bitlist helpers, built on github.com/OffchainLabs/go-bitfield
// — the same library geanlabs-gean/consensus/{transition,justifications}.go
// wraps for these exact fields (JustifiedSlots/JustificationValidators). A
// bitlist here is a go-bitfield Bitlist: a packed []byte with bit i stored
// at byte i/8, bit i%8 (LSB first), followed by the library's sentinel bit
// marking its length. bitAt and setBitAt bound-check against that length
// (bl.Len()), and growth below always means "make room for at least this
// many bits", mirroring the teacher's getBit/setBit pair in
// consensus/transition.go. types.State.HashTreeRoot reads the first
// len(HistoricalBlockHashes) (or len(JustificationsRoots)*NumValidators)
// bits of these bytes and passes them to ssz.BitlistHashTreeRoot as a
// []bool.

func newBitlist(nBits int) []byte {
	return bitfield.NewBitlist(uint64(nBits))
}

func bitAt(bits []byte, i int) bool {
	bl := bitfield.Bitlist(bits)
	if uint64(i) >= bl.Len() {
		return false
	}
	return bl.BitAt(uint64(i))
}

func setBitAt(bits []byte, i int, v bool) []byte {
	bl := bitfield.Bitlist(bits)
	idx := uint64(i)
	if idx >= bl.Len() {
		grown := bitfield.NewBitlist(idx + 1)
		for j := uint64(0); j < bl.Len(); j++ {
			if bl.BitAt(j) {
				grown.SetBitAt(j, true)
			}
		}
		bl = grown
	}
	bl.SetBitAt(idx, v)
	return bl
}

// appendBit appends a bit as the new highest-indexed bit of a bitlist whose
// current length (in bits) is currentLen.
func appendBit(bits []byte, currentLen int, v bool) []byte {
	return setBitAt(bits, currentLen, v)
}

func popcount(bits []byte) int {
	bl := bitfield.Bitlist(bits)
	n := 0
	for i := uint64(0); i < bl.Len(); i++ {
		if bl.BitAt(i) {
			n++
		}
	}
	return n
}
