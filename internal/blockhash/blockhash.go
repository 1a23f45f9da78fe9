// Package blockhash builds and maintains the per-target-block hash
// table parsed from a checksum stream, and the rsum index with its
// bit-hash negative filter built on top of it.
package blockhash

import (
	"io"

	"github.com/blocksync/zsyncgo/internal/rollsum"
	"github.com/pkg/errors"
)

// StrongSize is the number of bytes of an MD4 digest an Entry can
// hold, regardless of how many are actually meaningful for a given job
// (its strongBytes).
const StrongSize = 16

// NoEntry is the sentinel "no next entry" index used in place of a
// null pointer in collision-chain links.
const NoEntry int32 = -1

// Entry is a single target block's checksums plus its collision-chain
// link. The block's id is implicit from its position in Table.Entries.
type Entry struct {
	R        rollsum.Sum
	Checksum [StrongSize]byte
	next     int32
}

// Table is the dense, block-id-indexed hash table built once from a
// job's checksum stream and then frozen in shape: entries are only ever
// unlinked from the rsum index, never reinserted.
type Table struct {
	// Entries has length Blocks+SeqMatches: Blocks meaningful entries
	// followed by SeqMatches zero-valued sentinel slots, so that
	// lookahead by up to SeqMatches-1 never runs off the end.
	Entries []Entry

	Blocks      int64
	WeakBytes   int
	StrongBytes int
	SeqMatches  int
	WeakMask    uint16
}

// WeakMaskFor returns the mask applied to a rolling sum's a field
// during comparison: 0, 0xFF, or 0xFFFF for weakBytes of 2, 3, 4
// respectively. With fewer stored bytes, less of a participates.
func WeakMaskFor(weakBytes int) uint16 {
	switch weakBytes {
	case 3:
		return 0xFF
	case 4:
		return 0xFFFF
	default:
		return 0
	}
}

// BuildTable parses blocks records of weakBytes+strongBytes bytes each
// from r, in block-id order, into a fresh Table.
//
// The weak checksum bytes are read explicitly into (a, b) rather than
// aliased onto a native integer's layout, so the on-disk format stays
// stable across hosts: the weakBytes bytes fill the low-order end of a
// 4-byte big-endian buffer [aHi,aLo,bHi,bLo], zero-padded at the front.
func BuildTable(r io.Reader, blocks int64, weakBytes, strongBytes, seqMatches int) (*Table, error) {
	if blocks < 0 {
		return nil, errors.Errorf("blockhash: negative block count %d", blocks)
	}

	weakMask := WeakMaskFor(weakBytes)
	t := &Table{
		Entries:     make([]Entry, blocks+int64(seqMatches)),
		Blocks:      blocks,
		WeakBytes:   weakBytes,
		StrongBytes: strongBytes,
		SeqMatches:  seqMatches,
		WeakMask:    weakMask,
	}

	recordLen := weakBytes + strongBytes
	record := make([]byte, recordLen)

	for id := int64(0); id < blocks; id++ {
		if _, err := io.ReadFull(r, record); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, errors.Wrapf(ErrInvalidChecksumStream, "record %d of %d", id, blocks)
			}
			return nil, errors.Wrap(ErrChecksumStreamRead, err.Error())
		}

		var field [4]byte
		copy(field[4-weakBytes:], record[:weakBytes])
		a := uint16(field[0])<<8 | uint16(field[1])
		b := uint16(field[2])<<8 | uint16(field[3])

		e := &t.Entries[id]
		e.R.A = a & weakMask
		e.R.B = b
		e.next = NoEntry
		copy(e.Checksum[:strongBytes], record[weakBytes:])
	}

	return t, nil
}

// ErrInvalidChecksumStream is returned (wrapped) by BuildTable when
// the stream ends before blocks records have been read.
var ErrInvalidChecksumStream = errors.New("blockhash: invalid checksum stream")

// ErrChecksumStreamRead is returned (wrapped) by BuildTable when a read
// from the stream fails for a reason other than running out of data.
var ErrChecksumStreamRead = errors.New("blockhash: checksum stream read failed")
