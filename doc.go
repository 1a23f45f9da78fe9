// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package zsyncgo implements the core of a zsync-style binary delta
// reconstruction engine: given a target file described by a stream of
// per-block checksums and a seed file that may share content with the
// target, it identifies which byte ranges of the target can be
// satisfied from the seed, copies those ranges into an under
// construction output file, and reports the block ranges that still
// need to be fetched from elsewhere.
//
// The matching engine itself — rolling checksum, block hash table,
// rsum index with its bit-hash filter, known-range set, target writer,
// and seed scanner — lives under internal/, one package per concern.
// This package wires them together behind Run, the job driver.
package zsyncgo
