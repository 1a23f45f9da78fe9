package blockhash

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/blocksync/zsyncgo/internal/rollsum"
)

// bitHashBits is the number of extra address bits the bit-hash filter
// gets over the rsum bucket table, making it 8x denser.
const bitHashBits = 3

// Index is the sparse rsum hash table (bucket per weak-checksum key,
// holding the head of a collision chain through the Table) plus the
// bit-hash negative filter built on top of it.
type Index struct {
	table *Table

	buckets     []int32
	bitHash     *bitset.BitSet
	hashMask    uint32
	bitHashMask uint32
}

// entryHash computes the composite rsum-hash key for entry id from the
// checksums stored in the table.
func entryHash(t *Table, id int64) uint32 {
	e := &t.Entries[id]
	h := uint32(e.R.B)
	if t.SeqMatches > 1 {
		h ^= uint32(t.Entries[id+1].R.B) << bitHashBits
	} else {
		h ^= uint32(e.R.A&t.WeakMask) << bitHashBits
	}
	return h
}

// WindowHash computes the same composite hash as entryHash, but from
// live rolling sums observed while scanning a seed buffer, so that
// lookups land in the same buckets BuildIndex populated.
func WindowHash(first, second rollsum.Sum, seqMatches int, weakMask uint16) uint32 {
	h := uint32(first.B)
	if seqMatches > 1 {
		h ^= uint32(second.B) << bitHashBits
	} else {
		h ^= uint32(first.A&weakMask) << bitHashBits
	}
	return h
}

// BuildIndex builds the rsum hash and bit-hash for t. Any previously
// built index for the same table is simply discarded by the caller;
// Table itself carries no pointer back to an Index.
func BuildIndex(t *Table) *Index {
	// Choose i as the largest integer in [4, 16] with 2^i <= blocks (4
	// when there is none), so the bucket table has 2^(i+1) > blocks slots
	// for any block count below 2^17.
	i := 16
	for (int64(2)<<(i-1)) > t.Blocks && i > 4 {
		i--
	}

	hashMask := uint32(2<<i) - 1
	bitHashMask := uint32(2<<(i+bitHashBits)) - 1

	ix := &Index{
		table:       t,
		buckets:     make([]int32, hashMask+1),
		bitHash:     bitset.New(uint(bitHashMask) + 1),
		hashMask:    hashMask,
		bitHashMask: bitHashMask,
	}
	for b := range ix.buckets {
		ix.buckets[b] = NoEntry
	}

	// Insert by prepending while iterating ids from high to low, so that
	// natural chain iteration yields ascending block ids and identical
	// blocks get written out in order.
	for id := t.Blocks - 1; id >= 0; id-- {
		h := entryHash(t, id)
		t.Entries[id].next = ix.buckets[h&hashMask]
		ix.buckets[h&hashMask] = int32(id)
		ix.bitHash.Set(uint(h & bitHashMask))
	}

	return ix
}

// MayContain is the bit-hash's O(1) negative-lookup filter: if it
// returns false, hash is guaranteed absent from the bucket table.
func (ix *Index) MayContain(hash uint32) bool {
	return ix.bitHash.Test(uint(hash & ix.bitHashMask))
}

// Head returns the head entry index of hash's bucket, or NoEntry if the
// bucket is empty.
func (ix *Index) Head(hash uint32) int32 {
	return ix.buckets[hash&ix.hashMask]
}

// Next returns the next entry index in id's collision chain, or NoEntry.
func (ix *Index) Next(id int64) int32 {
	return ix.table.Entries[id].next
}

// Remove unlinks entry id from its bucket so it is never matched
// again. If rover currently points at id, it is advanced to id's
// successor first, keeping an in-progress chain walk safe while its
// entries are deleted out from under it.
func (ix *Index) Remove(id int64, rover *int64) {
	h := entryHash(ix.table, id)
	p := &ix.buckets[h&ix.hashMask]
	for *p != NoEntry {
		if *p == int32(id) {
			if rover != nil && *rover == id {
				*rover = int64(ix.table.Entries[id].next)
			}
			*p = ix.table.Entries[id].next
			return
		}
		p = &ix.table.Entries[*p].next
	}
}
