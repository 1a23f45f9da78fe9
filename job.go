// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package zsyncgo

import (
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"

	"github.com/blocksync/zsyncgo/internal/blockhash"
	"github.com/blocksync/zsyncgo/internal/rangeset"
	"github.com/blocksync/zsyncgo/internal/rollsum"
	"github.com/blocksync/zsyncgo/internal/scanner"
	"github.com/blocksync/zsyncgo/internal/targetwriter"
	"github.com/blocksync/zsyncgo/internal/zsynclog"
)

// JobParams describes one reconstruction job. All fields are fixed for
// the job's lifetime.
type JobParams struct {
	// BlockSize is the target's block size in bytes. Production control
	// files always use a power of two; other positive values are
	// accepted, with byte offsets derived from the ceiling of
	// log2(BlockSize).
	BlockSize uint32

	// BlockIDOffset is the absolute block id of the first block this
	// job owns. It allows a target to be partitioned across several
	// jobs, each covering a disjoint run of blocks.
	BlockIDOffset int64

	// Blocks is the number of target blocks covered by this job.
	Blocks int64

	// WeakBytes is how many bytes of the rolling checksum each record
	// of the checksum stream carries, in [2, 4].
	WeakBytes int

	// StrongBytes is how many leading bytes of a block's MD4 digest
	// are stored and compared, in [1, 16].
	StrongBytes int

	// SeqMatches is 1 or 2. At 2, a block is only accepted once two
	// consecutive blocks match, which sharply reduces false positives
	// at small StrongBytes.
	SeqMatches int

	// TargetFile receives matched blocks at block-aligned offsets. It
	// must cover at least (Blocks+BlockIDOffset)*BlockSize bytes.
	TargetFile io.WriterAt

	// ChecksumStream supplies Blocks records of WeakBytes+StrongBytes
	// bytes each, in block-id order.
	ChecksumStream io.Reader

	// SeedPath is the local file to scan for reusable blocks.
	SeedPath string
}

// RequiredRange is an inclusive run of absolute block ids that could
// not be filled from the seed, together with the truncated MD4 of each
// block in the run so the downloaded data can be verified.
type RequiredRange struct {
	From, To  int64
	Checksums [][]byte
}

// Result is what a job returns. GotBlocks counts the target blocks
// filled from the seed. RequiredRanges lists what remains to be
// fetched; nil means the target was fully assembled from the seed, or
// that the job failed before scanning began.
type Result struct {
	Code           ErrorCode
	Err            error
	GotBlocks      int64
	RequiredRanges []RequiredRange
}

// Run executes one reconstruction job: it parses the checksum stream
// into the block hash table, builds the rsum index, scans the seed file
// for reusable blocks, writes every confirmed block into the target
// file, and reports the block ranges that still have to be fetched.
//
// Errors before scanning begins leave the target untouched. Errors
// during the scan (a failed read on the seed, or ctx being cancelled)
// keep everything matched so far: GotBlocks, the written target blocks
// and RequiredRanges all reflect the partial progress, so the caller
// can retry with another seed over a fresh checksum stream.
func Run(ctx context.Context, p JobParams) Result {
	if p.SeqMatches < 1 {
		p.SeqMatches = 1
	}

	if p.Blocks < 0 || p.BlockSize == 0 {
		return Result{
			Code: HashTableNotAllocated,
			Err: NewJobError(HashTableNotAllocated,
				errors.Errorf("cannot size hash table for %d blocks of %d bytes", p.Blocks, p.BlockSize)),
		}
	}
	if p.ChecksumStream == nil {
		return Result{
			Code: ChecksumStreamOpenFailed,
			Err:  NewJobError(ChecksumStreamOpenFailed, errors.New("no checksum stream")),
		}
	}

	table, err := blockhash.BuildTable(p.ChecksumStream, p.Blocks, p.WeakBytes, p.StrongBytes, p.SeqMatches)
	if err != nil {
		code := ChecksumStreamReadFailed
		if errors.Is(err, blockhash.ErrInvalidChecksumStream) {
			code = InvalidChecksumStream
		}
		return Result{Code: code, Err: NewJobError(code, err)}
	}

	seed, err := os.Open(p.SeedPath)
	if err != nil {
		var code ErrorCode
		switch {
		case errors.Is(err, fs.ErrNotExist):
			code = SeedNotFound
		case errors.Is(err, fs.ErrPermission):
			code = SeedNotReadable
		default:
			code = SeedOpenFailed
		}
		return Result{Code: code, Err: NewJobError(code, err)}
	}
	defer seed.Close()

	index := blockhash.BuildIndex(table)
	ranges := &rangeset.Set{}
	shift := rollsum.BlockShift(p.BlockSize)
	writer := targetwriter.New(p.TargetFile, p.BlockSize, shift, p.BlockIDOffset)
	eng := scanner.New(table, index, ranges, writer, int64(p.BlockSize), shift)

	got, scanErr := eng.Scan(ctx, seed)
	if fi, err := seed.Stat(); err == nil {
		zsynclog.Printf("seed %s: scanned %s, matched %d of %d blocks",
			p.SeedPath, zsynclog.Bytes(uint64(fi.Size())), got, p.Blocks)
	}

	result := Result{
		GotBlocks:      got,
		RequiredRanges: requiredRanges(table, ranges, p.BlockIDOffset, p.StrongBytes),
	}
	if scanErr != nil {
		// Blocks written before the failure stay written; the caller
		// can retry the remaining ranges with another seed.
		switch {
		case errors.Is(scanErr, context.Canceled), errors.Is(scanErr, context.DeadlineExceeded):
			result.Code = Aborted
		default:
			result.Code = SeedNotReadable
		}
		result.Err = NewJobError(result.Code, scanErr)
	}
	return result
}

// requiredRanges inverts the known-range set over the job's block
// window [offset, offset+blocks) and attaches each missing block's
// stored MD4 prefix. Returns nil when nothing is missing.
func requiredRanges(table *blockhash.Table, ranges *rangeset.Set, offset int64, strongBytes int) []RequiredRange {
	var out []RequiredRange

	emit := func(from, to int64) {
		sums := make([][]byte, 0, to-from+1)
		for id := from; id <= to; id++ {
			sum := make([]byte, strongBytes)
			copy(sum, table.Entries[id-offset].Checksum[:strongBytes])
			sums = append(sums, sum)
		}
		out = append(out, RequiredRange{From: from, To: to, Checksums: sums})
	}

	next := offset
	for i := 0; i < ranges.Len(); i++ {
		lo, hi := ranges.Bounds(i)
		lo += offset
		hi += offset
		if lo > next {
			emit(next, lo-1)
		}
		next = hi + 1
	}
	if next < offset+table.Blocks {
		emit(next, offset+table.Blocks-1)
	}
	return out
}
