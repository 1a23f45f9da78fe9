package targetwriter_test

import (
	"io"
	"testing"

	"github.com/blocksync/zsyncgo/internal/rollsum"
	"github.com/blocksync/zsyncgo/internal/targetwriter"
	"github.com/hooklift/assert"
)

// memTarget is a simple io.WriterAt over an in-memory buffer, sized
// up-front like a real target file would be.
type memTarget struct {
	buf []byte
}

func newMemTarget(size int) *memTarget {
	return &memTarget{buf: make([]byte, size)}
}

func (m *memTarget) WriteAt(p []byte, off int64) (int, error) {
	if int(off)+len(p) > len(m.buf) {
		return 0, io.ErrShortBuffer
	}
	copy(m.buf[off:], p)
	return len(p), nil
}

func TestWriteBlocksAtBlockAlignedOffset(t *testing.T) {
	target := newMemTarget(16)
	w := targetwriter.New(target, 4, rollsum.BlockShift(4), 0)

	err := w.WriteBlocks([]byte("EFGH"), 1, 1)
	assert.Ok(t, err)

	assert.Equals(t, []byte("\x00\x00\x00\x00EFGH\x00\x00\x00\x00\x00\x00\x00\x00"), target.buf)
}

func TestWriteBlocksRespectsBlockIDOffset(t *testing.T) {
	target := newMemTarget(16)
	w := targetwriter.New(target, 4, rollsum.BlockShift(4), 2)

	err := w.WriteBlocks([]byte("XYZ!"), 0, 0)
	assert.Ok(t, err)

	assert.Equals(t, []byte("\x00\x00\x00\x00\x00\x00\x00\x00XYZ!\x00\x00\x00\x00"), target.buf)
}

func TestWriteBlocksMultiBlockRange(t *testing.T) {
	target := newMemTarget(12)
	w := targetwriter.New(target, 4, rollsum.BlockShift(4), 0)

	err := w.WriteBlocks([]byte("ABCDEFGHIJKL"), 0, 2)
	assert.Ok(t, err)

	assert.Equals(t, []byte("ABCDEFGHIJKL"), target.buf)
}
