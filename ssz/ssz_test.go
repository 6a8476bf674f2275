package ssz

import "testing"

func TestMerkleizeEmptyMatchesZeroSubtree(t *testing.T) {
	root := Merkleize(nil, 4)
	want := zeroSubtreeRoot(log2Ceil(4))
	if root != want {
		t.Fatalf("Merkleize(nil, 4) = %x, want zero subtree %x", root, want)
	}
}

func TestMerkleizeSingleChunkNoPadding(t *testing.T) {
	c := Uint64Chunk(42)
	root := Merkleize([]Root{c}, 1)
	if root != c {
		t.Fatalf("Merkleize single chunk with limit 1 should return the chunk itself")
	}
}

func TestListHashTreeRootMixesInLength(t *testing.T) {
	elems := []Root{Uint64Chunk(1), Uint64Chunk(2), Uint64Chunk(3)}
	root := ListHashTreeRoot(elems, 8)
	want := MixInLength(Merkleize(elems, 8), 3)
	if root != want {
		t.Fatalf("ListHashTreeRoot mismatch")
	}
}

func TestBitlistHashTreeRootEmpty(t *testing.T) {
	root := BitlistHashTreeRoot(nil, 256)
	want := MixInLength(Merkleize(nil, BitlistChunkLimit(256)), 0)
	if root != want {
		t.Fatalf("BitlistHashTreeRoot(nil) mismatch")
	}
}

func TestBitlistHashTreeRootRoundTripsBits(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, false, true}
	root := BitlistHashTreeRoot(bits, 1024)

	byteLen := (len(bits) + 7) / 8
	raw := make([]byte, byteLen)
	for i, b := range bits {
		if b {
			raw[i/8] |= 1 << uint(i%8)
		}
	}
	want := MixInLength(Merkleize(PackBytes(raw), BitlistChunkLimit(1024)), uint64(len(bits)))
	if root != want {
		t.Fatalf("BitlistHashTreeRoot mismatch for non-byte-aligned length")
	}
}

func TestBitlistHashTreeRootLengthSensitive(t *testing.T) {
	// Two bitlists with identical underlying bytes but different declared
	// lengths must hash differently: this is exactly the rounding bug
	// that made packed-byte length an unsafe substitute for the true bit
	// count.
	bits8 := make([]bool, 8)
	bits5 := make([]bool, 5)
	root8 := BitlistHashTreeRoot(bits8, 256)
	root5 := BitlistHashTreeRoot(bits5, 256)
	if root8 == root5 {
		t.Fatalf("bitlists of different logical length must not hash identically")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 9: 16}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
