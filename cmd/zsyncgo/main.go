// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Tool zsyncgo reconstructs a target file from a local seed file plus a
// per-block checksum stream, and prints the block ranges that still
// have to be fetched from an authoritative source.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/DavidGamba/go-getoptions"
	"github.com/dustin/go-humanize"

	"github.com/blocksync/zsyncgo"
)

type opts struct {
	BlockSize   int
	Blocks      int
	Offset      int
	WeakBytes   int
	StrongBytes int
	SeqMatches  int
	Checksums   string
	Seed        string
	Output      string
}

func newGetOpt() (*opts, *getoptions.GetOpt) {
	var o opts
	opt := getoptions.New()
	opt.Bool("help", false, opt.Alias("h"))
	opt.IntVar(&o.BlockSize, "blocksize", 2048, opt.Description("target block size in bytes"))
	opt.IntVar(&o.Blocks, "blocks", 0, opt.Required(), opt.Description("number of target blocks covered by this job"))
	opt.IntVar(&o.Offset, "offset", 0, opt.Description("absolute block id of the first block this job owns"))
	opt.IntVar(&o.WeakBytes, "weak-bytes", 4, opt.Description("rolling checksum bytes per record (2-4)"))
	opt.IntVar(&o.StrongBytes, "strong-bytes", 16, opt.Description("MD4 prefix bytes per record (1-16)"))
	opt.IntVar(&o.SeqMatches, "seq-matches", 1, opt.Description("require this many consecutive block matches (1 or 2)"))
	opt.StringVar(&o.Checksums, "checksums", "", opt.Required(), opt.Description("path to the packed per-block checksum stream"))
	opt.StringVar(&o.Seed, "seed", "", opt.Required(), opt.Description("local file to scan for reusable blocks"))
	opt.StringVar(&o.Output, "output", "", opt.Required(), opt.Description("under-construction target file"))
	return &o, opt
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	o, opt := newGetOpt()
	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n%s", err, opt.Help())
		os.Exit(2)
	}

	if err := run(ctx, o); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, o *opts) error {
	checksums, err := os.Open(o.Checksums)
	if err != nil {
		return err
	}
	defer checksums.Close()

	out, err := os.OpenFile(o.Output, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	size := int64(o.Blocks+o.Offset) * int64(o.BlockSize)
	if err := out.Truncate(size); err != nil {
		return err
	}

	result := zsyncgo.Run(ctx, zsyncgo.JobParams{
		BlockSize:      uint32(o.BlockSize),
		BlockIDOffset:  int64(o.Offset),
		Blocks:         int64(o.Blocks),
		WeakBytes:      o.WeakBytes,
		StrongBytes:    o.StrongBytes,
		SeqMatches:     o.SeqMatches,
		TargetFile:     out,
		ChecksumStream: checksums,
		SeedPath:       o.Seed,
	})
	if result.Err != nil {
		return result.Err
	}

	gotBytes := uint64(result.GotBlocks) * uint64(o.BlockSize)
	fmt.Printf("matched %d of %d blocks (%s) from %s\n",
		result.GotBlocks, o.Blocks, humanize.IBytes(gotBytes), o.Seed)

	if result.RequiredRanges == nil {
		fmt.Println("target fully assembled from seed")
		return nil
	}
	fmt.Println("still required:")
	for _, r := range result.RequiredRanges {
		fmt.Printf("  blocks %d-%d (%d blocks)\n", r.From, r.To, len(r.Checksums))
	}
	return nil
}
