// Package ssz implements the tree-hashing and merkleization primitives the
// per-type Marshal/Unmarshal/HashTreeRoot methods in package types build on.
// It plays the role fastssz's runtime support package (github.com/ferranbt/
// fastssz/ssz) plays for sszgen-generated code: the per-type codecs in
// types/encoding.go are hand-written in the same shape sszgen emits, and
// call back into this package for the shared merkleization rules (balanced
// trees, list/bitlist mix-in-length, zero subtrees) that are independent of
// any one container's layout.
package ssz

import (
	"crypto/sha256"
	"encoding/binary"
)

// Root is a 32-byte tree-hash chunk/root. It has the same underlying type as
// types.Root; callers convert at the package boundary (ssz.Root(r) /
// types.Root(c)) since this package must not import types to stay a leaf.
type Root [32]byte

// BytesPerChunk is the merkleization leaf size.
const BytesPerChunk = 32

// DecodeError reports a malformed SSZ byte stream: a bad offset, bounds
// exceeded, or unexpected trailing bytes.
type DecodeError struct {
	Kind string
}

func (e *DecodeError) Error() string { return "ssz: decode error: " + e.Kind }

var (
	// ErrBadOffset is returned when a variable-field offset is out of order
	// or points past the end of the buffer.
	ErrBadOffset = &DecodeError{Kind: "offset"}
	// ErrBounds is returned when a fixed-size read would exceed the buffer.
	ErrBounds = &DecodeError{Kind: "bounds"}
	// ErrTrailingBytes is returned when decode consumes less than the full
	// input buffer.
	ErrTrailingBytes = &DecodeError{Kind: "trailing_bytes"}
	// ErrBitlist is returned when a bitlist's sentinel bit is missing or the
	// encoded length exceeds its limit.
	ErrBitlist = &DecodeError{Kind: "bitlist"}
)

var zeroChunk = Root{}

// HashNodes computes the parent of two sibling chunks.
func HashNodes(a, b Root) Root {
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])
	var out Root
	copy(out[:], h.Sum(nil))
	return out
}

// Uint64Chunk little-endian encodes v into a zero-padded 32-byte chunk.
func Uint64Chunk(v uint64) Root {
	var c Root
	binary.LittleEndian.PutUint64(c[:8], v)
	return c
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// log2Ceil returns ceil(log2(n)) for n >= 1.
func log2Ceil(n int) int {
	depth := 0
	for (1 << depth) < n {
		depth++
	}
	return depth
}

// zeroSubtreeRoot returns the root of a perfectly balanced tree of the given
// depth whose every leaf is the zero chunk.
func zeroSubtreeRoot(depth int) Root {
	h := zeroChunk
	for i := 0; i < depth; i++ {
		h = HashNodes(h, h)
	}
	return h
}

// Merkleize computes the root of a balanced binary tree over chunks, padded
// with zero chunks up to the next power of two of max(len(chunks), limit).
//
// When chunks is empty, this is the zero subtree of depth ceil(log2(limit))
// rather than the zero chunk itself (unless limit <= 1) — this matches the
// reference's treatment of merkleize_chunks(empty, limit), which callers
// combined with MixInLength(root, 0) for an empty list's tree-hash root.
func Merkleize(chunks []Root, limit int) Root {
	if limit <= 0 {
		limit = len(chunks)
	}
	if len(chunks) == 0 {
		if limit <= 1 {
			return zeroChunk
		}
		return zeroSubtreeRoot(log2Ceil(limit))
	}

	effective := len(chunks)
	if limit > effective {
		effective = limit
	}
	width := nextPowerOfTwo(effective)

	level := make([]Root, width)
	copy(level, chunks)
	for i := len(chunks); i < width; i++ {
		level[i] = zeroChunk
	}

	for len(level) > 1 {
		next := make([]Root, len(level)/2)
		for i := range next {
			next[i] = HashNodes(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// MerkleizeFixed merkleizes a fixed number of container field roots with no
// length limit and no mix-in-length — used for struct/container hashing.
func MerkleizeFixed(fieldRoots []Root) Root {
	return Merkleize(fieldRoots, len(fieldRoots))
}

// MixInLength hashes root together with the little-endian encoding of
// length, per the SSZ list/bitlist convention.
func MixInLength(root Root, length uint64) Root {
	return HashNodes(root, Uint64Chunk(length))
}

// PackBytes splits data into 32-byte zero-padded chunks.
func PackBytes(data []byte) []Root {
	if len(data) == 0 {
		return nil
	}
	n := (len(data) + BytesPerChunk - 1) / BytesPerChunk
	chunks := make([]Root, n)
	for i := 0; i < n; i++ {
		start := i * BytesPerChunk
		end := start + BytesPerChunk
		if end > len(data) {
			end = len(data)
		}
		copy(chunks[i][:], data[start:end])
	}
	return chunks
}

// ListHashTreeRoot computes the tree-hash root of a variable-length list of
// already-merkleized element roots: merkleize(chunks, limit) mixed in with
// the element count.
func ListHashTreeRoot(elementRoots []Root, limit int) Root {
	return MixInLength(Merkleize(elementRoots, limit), uint64(len(elementRoots)))
}

// BitlistChunkLimit returns the chunk-count limit for a bitlist whose
// maximum bit length is maxBits: ceil(maxBits / 256).
func BitlistChunkLimit(maxBits uint64) int {
	return int((maxBits + 255) / 256)
}

// BitlistHashTreeRoot computes the tree-hash root of a bitlist. bits holds
// one bool per flag (true == set) for the actual data bits only (no
// sentinel); maxBits is the list's declared capacity.
func BitlistHashTreeRoot(bits []bool, maxBits uint64) Root {
	length := uint64(len(bits))
	byteLen := (len(bits) + 7) / 8
	raw := make([]byte, byteLen)
	for i, b := range bits {
		if b {
			raw[i/8] |= 1 << uint(i%8)
		}
	}
	chunks := PackBytes(raw)
	root := Merkleize(chunks, BitlistChunkLimit(maxBits))
	return MixInLength(root, length)
}
