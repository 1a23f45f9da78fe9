// Package targetwriter writes matched block ranges into the
// under-construction target file at block-aligned offsets.
package targetwriter

import (
	"io"

	"github.com/pkg/errors"
)

// Writer performs the positional writes into a target file.
//
// It is built on io.WriterAt rather than a Seek/Write pair: WriteAt
// neither observes nor disturbs the handle's current offset (for
// *os.File it is pwrite), so the caller's file position survives every
// write, and independent jobs covering disjoint block ranges of the
// same target can write concurrently without a shared cursor.
type Writer struct {
	target        io.WriterAt
	blockSize     uint32
	blockShift    uint
	blockIDOffset int64
}

// New creates a Writer targeting dst. blockShift is the shift amount
// used to turn a block id into a byte offset (rollsum.BlockShift of the
// job's block size).
func New(dst io.WriterAt, blockSize uint32, blockShift uint, blockIDOffset int64) *Writer {
	return &Writer{
		target:        dst,
		blockSize:     blockSize,
		blockShift:    blockShift,
		blockIDOffset: blockIDOffset,
	}
}

// WriteBlocks writes data[0 : (bto-bfrom+1)*blockSize] to the target
// file at the byte offset corresponding to block bfrom.
func (w *Writer) WriteBlocks(data []byte, bfrom, bto int64) error {
	blocks := bto - bfrom + 1
	length := blocks * int64(w.blockSize)
	offset := (bfrom + w.blockIDOffset) << w.blockShift

	if _, err := w.target.WriteAt(data[:length], offset); err != nil {
		return errors.Wrap(err, "targetwriter: write failed")
	}
	return nil
}
