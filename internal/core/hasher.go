package core

import (
	"FillIndexer/internal/message"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

const GenesisHashSeed = "FillIndexer:genesis:v1"

// OutputHasher chains a digest over every block's outbound messages:
//
//	hash[N] = SHA-256(hash[N-1] || height || len(topic) topic len(key) key len(value) value ...)
//
// Two indexers that replay the same blocks arrive at the same hash. The tip
// is persisted with each block so a restarted indexer continues the chain.
type OutputHasher struct {
	prevHash [32]byte
}

func NewOutputHasher() *OutputHasher {
	return &OutputHasher{prevHash: sha256.Sum256([]byte(GenesisHashSeed))}
}

// ResumeOutputHasher continues a chain from a persisted tip.
func ResumeOutputHasher(tip []byte) (*OutputHasher, error) {
	if len(tip) != sha256.Size {
		return nil, fmt.Errorf("output hash: want %d bytes, got %d", sha256.Size, len(tip))
	}
	h := &OutputHasher{}
	copy(h.prevHash[:], tip)
	return h, nil
}

// Next returns the tip folding msgs at height would produce. The chain does
// not move until Commit.
func (h *OutputHasher) Next(height uint32, msgs []message.ConsolidatedMessage) [32]byte {
	hasher := sha256.New()
	hasher.Write(h.prevHash[:])

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], height)
	hasher.Write(buf[:4])

	for _, m := range msgs {
		writeField(hasher, []byte(m.Topic))
		writeField(hasher, m.Key)
		writeField(hasher, m.Value)
	}

	var tip [32]byte
	copy(tip[:], hasher.Sum(nil))
	return tip
}

// Commit advances the chain to a tip returned by Next.
func (h *OutputHasher) Commit(tip [32]byte) {
	h.prevHash = tip
}

func writeField(w io.Writer, b []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	w.Write(n[:])
	w.Write(b)
}

// Tip returns the current chain tip.
func (h *OutputHasher) Tip() [32]byte {
	return h.prevHash
}
