// Package strongsum computes the strong, truncated MD4 checksum used to
// confirm a weak-checksum hit against the bytes of a candidate block.
package strongsum

import (
	"hash"

	"github.com/mmcloughlin/md4"
)

// Size is the length in bytes of a full MD4 digest. Jobs only ever
// compare a caller-chosen prefix of it (a job's strongBytes, in [1, 16]).
const Size = md4.Size

// Hasher computes MD4 digests of successive blocks, reusing one
// hash.Hash state that is reset before every block.
type Hasher struct {
	h hash.Hash
}

// New creates a Hasher ready for repeated use.
func New() *Hasher {
	return &Hasher{h: md4.New()}
}

// Sum resets the hasher, hashes data, and returns the full 16-byte MD4
// digest. Callers wanting the truncated strong checksum should slice
// the result to their configured strongBytes length.
func (h *Hasher) Sum(data []byte) [Size]byte {
	h.h.Reset()
	h.h.Write(data)
	var out [Size]byte
	copy(out[:], h.h.Sum(nil))
	return out
}
