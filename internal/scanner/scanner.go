// Package scanner implements the sliding-window seed scanner: the
// buffer-refill loop over a seed stream and the hash-chain matching
// that confirms and writes target blocks found in it.
package scanner

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/blocksync/zsyncgo/internal/blockhash"
	"github.com/blocksync/zsyncgo/internal/rangeset"
	"github.com/blocksync/zsyncgo/internal/rollsum"
	"github.com/blocksync/zsyncgo/internal/strongsum"
	"github.com/blocksync/zsyncgo/internal/targetwriter"
)

// bufferBlocks is the number of blocks held per refill, the same
// 16-block working buffer zsync scans with.
const bufferBlocks = 16

// Engine drives one job's seed scan. It owns no I/O itself beyond the
// target writer; Scan pulls bytes from whatever io.Reader it is given.
type Engine struct {
	table  *blockhash.Table
	index  *blockhash.Index
	ranges *rangeset.Set
	writer *targetwriter.Writer
	strong *strongsum.Hasher

	blockSize   int64
	blockShift  uint
	seqMatches  int
	strongBytes int
	weakMask    uint16
	context     int64

	// scan state, carried across SubmitData calls.
	skip            int64
	nextMatch       int64 // index into table.Entries, or blockhash.NoEntry
	cachedNextKnown int64
	current         [2]rollsum.Sum
}

// New creates an Engine ready to scan seed data against table/index,
// recording matches into ranges and writing matched bytes through w.
// blockSize and blockShift are job properties not carried by Table
// itself.
func New(table *blockhash.Table, index *blockhash.Index, ranges *rangeset.Set, w *targetwriter.Writer, blockSize int64, blockShift uint) *Engine {
	return &Engine{
		table:       table,
		index:       index,
		ranges:      ranges,
		writer:      w,
		strong:      strongsum.New(),
		blockSize:   blockSize,
		blockShift:  blockShift,
		seqMatches:  table.SeqMatches,
		strongBytes: table.StrongBytes,
		weakMask:    table.WeakMask,
		context:     blockSize * int64(table.SeqMatches),
		nextMatch:   int64(blockhash.NoEntry),
		// cachedNextKnown starts at Blocks so a sequential-hint match
		// that fires before any full-chain search still writes; every
		// full-chain search refreshes it.
		cachedNextKnown: table.Blocks,
	}
}

// Scan reads r in 16-block refills, maintaining the last e.context
// bytes across refills, and zero-pads the final refill by e.context
// bytes so the last blocks can still be matched. It returns the number
// of blocks obtained from r.
func (e *Engine) Scan(ctx context.Context, r io.Reader) (int64, error) {
	bufSize := e.blockSize * bufferBlocks
	buf := make([]byte, bufSize+e.context)

	var in int64
	var gotBlocks int64

	for {
		select {
		case <-ctx.Done():
			return gotBlocks, ctx.Err()
		default:
		}

		var length int64
		var atEOF bool
		startIn := in

		// atEOF is driven by the read call's own error rather than by
		// comparing the resulting length against bufSize: io.ReadFull
		// only reports EOF/ErrUnexpectedEOF when it could not fill the
		// requested span, so a source whose size lands on an exact
		// refill boundary is detected one (harmless, content-free)
		// iteration later than C's feof() would — the carried-over
		// context bytes get reprocessed, but no new data does.
		if in == 0 {
			n, err := io.ReadFull(r, buf[:bufSize])
			length = int64(n)
			in += length
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				atEOF = true
			} else if err != nil {
				return gotBlocks, errors.Wrap(err, "scanner: reading seed")
			}
		} else {
			copy(buf[:e.context], buf[bufSize-e.context:bufSize])
			n, err := io.ReadFull(r, buf[e.context:bufSize])
			length = e.context + int64(n)
			in += bufSize - e.context
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				atEOF = true
			} else if err != nil {
				return gotBlocks, errors.Wrap(err, "scanner: reading seed")
			}
		}

		if atEOF {
			for i := length; i < length+e.context; i++ {
				buf[i] = 0
			}
			length += e.context
		}

		n, err := e.SubmitData(ctx, buf, int(length), startIn)
		gotBlocks += n
		if err != nil {
			return gotBlocks, err
		}

		if atEOF {
			return gotBlocks, nil
		}
	}
}

// SubmitData processes one refill's worth of data. offset should be 0
// for the very first call; it is otherwise unused beyond that
// distinction, since the engine's internal skip/current state carries
// position across calls.
func (e *Engine) SubmitData(ctx context.Context, data []byte, length int, offset int64) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	bs := e.blockSize
	var x int64
	var gotBlocks int64

	if offset != 0 {
		x = e.skip
	} else {
		e.nextMatch = int64(blockhash.NoEntry)
	}

	if x != 0 || offset == 0 {
		e.current[0] = rollsum.Of(data[x : x+bs])
		if e.seqMatches > 1 {
			e.current[1] = rollsum.Of(data[x+bs : x+2*bs])
		}
	}
	e.skip = 0

	for {
		if x+e.context == int64(length) {
			return gotBlocks, nil
		}

		var thisMatch, blocksMatched int64

		if e.nextMatch != int64(blockhash.NoEntry) && e.seqMatches > 1 {
			n, err := e.checkChain(e.nextMatch, data[x:], true)
			if err != nil {
				return gotBlocks, err
			}
			if n != 0 {
				thisMatch = n
				blocksMatched = 1
			}
		}

		if thisMatch == 0 {
			hash := blockhash.WindowHash(e.current[0], e.current[1], e.seqMatches, e.weakMask)
			if e.index.MayContain(hash) {
				if head := e.index.Head(hash); head != blockhash.NoEntry {
					n, err := e.checkChain(int64(head), data[x:], false)
					if err != nil {
						return gotBlocks, err
					}
					if n != 0 {
						thisMatch = n
						blocksMatched = int64(e.seqMatches)
					}
				}
			}
		}

		gotBlocks += thisMatch

		if blocksMatched != 0 {
			x += bs
			if blocksMatched > 1 {
				x += bs
			}

			if x+e.context > int64(length) {
				e.skip = x + e.context - int64(length)
				return gotBlocks, nil
			}

			if e.seqMatches > 1 && blocksMatched == 1 {
				e.current[0] = e.current[1]
			} else {
				e.current[0] = rollsum.Of(data[x : x+bs])
			}
			if e.seqMatches > 1 {
				e.current[1] = rollsum.Of(data[x+bs : x+2*bs])
			}
			continue
		}

		oc := data[x]
		nc := data[x+bs]
		var Nc byte
		if e.seqMatches > 1 {
			Nc = data[x+2*bs]
		}
		e.current[0] = rollsum.Slide(e.current[0], oc, nc, e.blockShift)
		if e.seqMatches > 1 {
			e.current[1] = rollsum.Slide(e.current[1], nc, Nc, e.blockShift)
		}
		x++
	}
}

// checkChain walks the collision chain starting at headID, testing the
// block at data[0:blockSize] (and, for sequential matching, following
// blocks) against every entry. When onlyOne is true, only headID itself
// is tested.
func (e *Engine) checkChain(headID int64, data []byte, onlyOne bool) (int64, error) {
	var md4sum [2][strongsum.Size]byte
	doneMd4 := -1
	var gotBlocks int64

	rs := e.current[0]
	e.nextMatch = int64(blockhash.NoEntry)

	rover := headID
	for rover != int64(blockhash.NoEntry) {
		id := rover
		if onlyOne {
			rover = int64(blockhash.NoEntry)
		} else {
			rover = int64(e.index.Next(id))
		}

		entry := e.table.Entries[id]
		if entry.R.A != (rs.A&e.weakMask) || entry.R.B != rs.B {
			continue
		}

		if !onlyOne && e.seqMatches > 1 {
			next := e.table.Entries[id+1]
			if next.R.A != (e.current[1].A&e.weakMask) || next.R.B != e.current[1].B {
				continue
			}
		}

		ok := true
		checkMd4 := 0
		for {
			if int(checkMd4) > doneMd4 {
				start := int64(checkMd4) * e.blockSize
				md4sum[checkMd4] = e.strong.Sum(data[start : start+e.blockSize])
				doneMd4 = checkMd4
			}

			if !bytes.Equal(md4sum[checkMd4][:e.strongBytes], e.table.Entries[id+int64(checkMd4)].Checksum[:e.strongBytes]) {
				ok = false
			}
			checkMd4++

			if !(ok && !onlyOne && checkMd4 < e.seqMatches) {
				break
			}
		}

		if !ok {
			continue
		}

		var nextKnown int64
		if onlyOne {
			nextKnown = e.cachedNextKnown
		} else {
			nextKnown = e.ranges.NextKnown(id, e.table.Blocks)
		}

		var numWriteBlocks int64
		if nextKnown > id+int64(checkMd4) {
			numWriteBlocks = int64(checkMd4)
			e.nextMatch = id + int64(checkMd4)
			if !onlyOne {
				e.cachedNextKnown = nextKnown
			}
		} else {
			numWriteBlocks = nextKnown - id
		}

		if err := e.writeAndRemove(data, id, id+numWriteBlocks-1, &rover); err != nil {
			return gotBlocks, err
		}
		gotBlocks += numWriteBlocks
	}

	return gotBlocks, nil
}

// writeAndRemove writes the matched block range to the target file,
// then unlinks each written block from the rsum index and records it
// in the known-range set. rover is fixed up if it currently points at a
// block being removed.
func (e *Engine) writeAndRemove(data []byte, bfrom, bto int64, rover *int64) error {
	if err := e.writer.WriteBlocks(data, bfrom, bto); err != nil {
		return err
	}
	for id := bfrom; id <= bto; id++ {
		e.index.Remove(id, rover)
		e.ranges.Add(id)
	}
	return nil
}
