package state

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Digest computes a merkle root over all committed key-value pairs.
// Each pair is hashed deterministically, the hashes are sorted, and a
// merkle tree is built from them. Returns a zero hash for an empty store.
// Two replicas holding the same state produce the same digest.
func (l *Ledger) Digest() (types.Hash, error) {
	// Taken under the commit lock so the digest never sees a half-applied
	// batch from a concurrent commit.
	l.mu.Lock()
	defer l.mu.Unlock()

	var hashes []types.Hash
	err := l.db.ForEach(nil, func(key, value []byte) error {
		hashes = append(hashes, hashPair(key, value))
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("state digest: %w", err)
	}

	if len(hashes) == 0 {
		return types.Hash{}, nil
	}

	// Sort for deterministic ordering (backend iteration order varies).
	sort.Slice(hashes, func(i, j int) bool {
		return hashLess(hashes[i], hashes[j])
	})

	return merkleRoot(hashes), nil
}

// hashPair produces a deterministic BLAKE3 hash of a key-value pair.
// Format: key_len(4, little-endian) | key | value
func hashPair(key, value []byte) types.Hash {
	buf := make([]byte, 0, 4+len(key)+len(value))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(key)))
	buf = append(buf, key...)
	buf = append(buf, value...)
	return crypto.Hash(buf)
}

func hashLess(a, b types.Hash) bool {
	for i := 0; i < types.HashSize; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// merkleRoot builds a merkle tree over the hashes: pairwise hash each
// level, duplicating the last element when the count is odd, until one
// hash remains.
func merkleRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return types.Hash{}
	}
	if len(hashes) == 1 {
		return hashes[0]
	}

	// Work on a copy so we don't mutate the caller's slice.
	level := make([]types.Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}

	return level[0]
}
