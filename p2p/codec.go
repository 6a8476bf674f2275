package p2p

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/golang/snappy"
)

// MessageDomainValidSnappy and MessageDomainInvalidSnappy are the
// gossipsub message-ID domain separation tags from the networking spec,
// selecting which hash preimage (decompressed vs raw) a message's ID is
// computed over. Grounded on geanlabs-gean/p2p/gossipsub.go.
var (
	MessageDomainValidSnappy   = [4]byte{0x01, 0x00, 0x00, 0x00}
	MessageDomainInvalidSnappy = [4]byte{0x00, 0x00, 0x00, 0x00}
)

// MessageID is a 20-byte gossipsub message identifier.
type MessageID [20]byte

// ComputeMessageID computes the message ID for a gossipsub message:
// SHA256(domain || uint64_le(len(topic)) || topic || data)[:20].
func ComputeMessageID(topic []byte, data []byte, snappyValid bool) MessageID {
	domain := MessageDomainInvalidSnappy
	if snappyValid {
		domain = MessageDomainValidSnappy
	}

	topicLen := make([]byte, 8)
	binary.LittleEndian.PutUint64(topicLen, uint64(len(topic)))

	h := sha256.New()
	h.Write(domain[:])
	h.Write(topicLen)
	h.Write(topic)
	h.Write(data)

	var id MessageID
	copy(id[:], h.Sum(nil)[:20])
	return id
}

// CompressMessage snappy-compresses an SSZ-encoded payload for the wire.
func CompressMessage(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// DecompressMessage reverses CompressMessage.
func DecompressMessage(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}
