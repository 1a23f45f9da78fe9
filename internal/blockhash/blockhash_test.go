package blockhash_test

import (
	"bytes"
	"testing"

	"github.com/blocksync/zsyncgo/internal/blockhash"
	"github.com/blocksync/zsyncgo/internal/rollsum"
	"github.com/blocksync/zsyncgo/internal/strongsum"
	"github.com/hooklift/assert"
)

// checksumStream builds a raw checksum-stream buffer for the given
// blocks, weakBytes and strongBytes.
func checksumStream(t *testing.T, blocks [][]byte, weakBytes, strongBytes int) []byte {
	t.Helper()
	h := strongsum.New()
	var buf bytes.Buffer
	for _, block := range blocks {
		r := rollsum.Of(block)
		var field [4]byte
		field[0] = byte(r.A >> 8)
		field[1] = byte(r.A)
		field[2] = byte(r.B >> 8)
		field[3] = byte(r.B)
		buf.Write(field[4-weakBytes:])

		sum := h.Sum(block)
		buf.Write(sum[:strongBytes])
	}
	return buf.Bytes()
}

func TestBuildTableParsesWeakAndStrongChecksums(t *testing.T) {
	blocks := [][]byte{[]byte("ABCD"), []byte("EFGH"), []byte("IJKL"), []byte("MNOP")}
	stream := checksumStream(t, blocks, 4, 16)

	table, err := blockhash.BuildTable(bytes.NewReader(stream), int64(len(blocks)), 4, 16, 1)
	assert.Ok(t, err)

	assert.Equals(t, int64(4), table.Blocks)
	assert.Equals(t, len(table.Entries), len(blocks)+1) // +SeqMatches sentinel

	h := strongsum.New()
	for i, block := range blocks {
		want := rollsum.Of(block)
		assert.Equals(t, want, table.Entries[i].R)

		sum := h.Sum(block)
		assert.Equals(t, sum[:16], table.Entries[i].Checksum[:16])
	}
}

func TestBuildTableAppliesWeakMask(t *testing.T) {
	blocks := [][]byte{[]byte("ABCD"), []byte("EFGH")}
	stream := checksumStream(t, blocks, 2, 1)

	table, err := blockhash.BuildTable(bytes.NewReader(stream), int64(len(blocks)), 2, 1, 1)
	assert.Ok(t, err)

	for _, e := range table.Entries[:2] {
		assert.Equals(t, uint16(0), e.R.A) // weak_bytes=2 => weak_mask=0
	}
}

func TestBuildTableFailsOnShortStream(t *testing.T) {
	stream := []byte{0x00, 0x01} // far too short for 4 blocks

	_, err := blockhash.BuildTable(bytes.NewReader(stream), 4, 4, 16, 1)
	assert.Cond(t, err != nil, "expected an error on a truncated checksum stream")
}

func TestBuildIndexFindsEveryBlockViaItsHash(t *testing.T) {
	blocks := [][]byte{[]byte("ABCD"), []byte("EFGH"), []byte("IJKL"), []byte("MNOP")}
	stream := checksumStream(t, blocks, 4, 16)

	table, err := blockhash.BuildTable(bytes.NewReader(stream), int64(len(blocks)), 4, 16, 1)
	assert.Ok(t, err)

	index := blockhash.BuildIndex(table)

	seen := map[int64]bool{}
	for id := int64(0); id < table.Blocks; id++ {
		r := table.Entries[id].R
		hash := blockhash.WindowHash(r, rollsum.Sum{}, 1, table.WeakMask)

		assert.Cond(t, index.MayContain(hash), "bit-hash should not reject a real block")

		head := index.Head(hash)
		found := false
		for cur := head; cur != blockhash.NoEntry; cur = index.Next(int64(cur)) {
			if int64(cur) == id {
				found = true
			}
		}
		assert.Cond(t, found, "block should be reachable from its bucket head")
		seen[id] = true
	}
	assert.Equals(t, len(blocks), len(seen))
}

func TestIndexRemoveUnlinksEntry(t *testing.T) {
	blocks := [][]byte{[]byte("ABCD"), []byte("EFGH"), []byte("IJKL"), []byte("MNOP")}
	stream := checksumStream(t, blocks, 4, 16)

	table, err := blockhash.BuildTable(bytes.NewReader(stream), int64(len(blocks)), 4, 16, 1)
	assert.Ok(t, err)
	index := blockhash.BuildIndex(table)

	hash := blockhash.WindowHash(table.Entries[1].R, rollsum.Sum{}, 1, table.WeakMask)
	index.Remove(1, nil)

	for cur := index.Head(hash); cur != blockhash.NoEntry; cur = index.Next(int64(cur)) {
		assert.Cond(t, int64(cur) != 1, "removed entry should not be reachable anymore")
	}
}
