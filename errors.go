// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package zsyncgo

import "fmt"

// ErrorCode is the stable, small-integer error taxonomy a job result
// carries alongside its wrapped Go error, so that callers across a
// process or language boundary (e.g. a CLI exit code) have something
// more durable than an error string to branch on.
type ErrorCode int

const (
	// Success means the job completed; it is the zero value so a
	// freshly zeroed Result reads as successful.
	Success ErrorCode = iota
	// HashTableNotAllocated means the block hash table or rsum index
	// could not be allocated (e.g. out of memory).
	HashTableNotAllocated
	// InvalidChecksumStream means the checksum stream was shorter than
	// blocks*(weak_bytes+strong_bytes) bytes, or otherwise malformed.
	InvalidChecksumStream
	// ChecksumStreamOpenFailed means the checksum stream's backing
	// resource (e.g. a file) could not be opened.
	ChecksumStreamOpenFailed
	// ChecksumStreamReadFailed means a read from an otherwise openable
	// checksum stream failed partway through.
	ChecksumStreamReadFailed
	// SeedNotFound means the seed path does not exist.
	SeedNotFound
	// SeedNotReadable means the seed path exists but could not be read
	// (e.g. a permissions error).
	SeedNotReadable
	// SeedOpenFailed covers any other seed-open failure.
	SeedOpenFailed
	// Aborted means the job's context was cancelled mid-scan; got_blocks
	// and the range set reflect everything matched before cancellation.
	Aborted
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case HashTableNotAllocated:
		return "hash table not allocated"
	case InvalidChecksumStream:
		return "invalid checksum stream"
	case ChecksumStreamOpenFailed:
		return "checksum stream open failed"
	case ChecksumStreamReadFailed:
		return "checksum stream read failed"
	case SeedNotFound:
		return "seed not found"
	case SeedNotReadable:
		return "seed not readable"
	case SeedOpenFailed:
		return "seed open failed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("zsyncgo: unknown error code %d", int(c))
	}
}

// JobError pairs an ErrorCode with the underlying, possibly
// pkg/errors-wrapped, Go error that produced it. Callers that only care
// about the code can switch on Code(); callers that want a rich trace
// can still reach the cause through Unwrap().
type JobError struct {
	code ErrorCode
	err  error
}

// NewJobError wraps err under code. err may be nil, in which case
// Error() falls back to the code's description.
func NewJobError(code ErrorCode, err error) *JobError {
	return &JobError{code: code, err: err}
}

func (e *JobError) Code() ErrorCode {
	return e.code
}

func (e *JobError) Error() string {
	if e.err == nil {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %s", e.code, e.err)
}

func (e *JobError) Unwrap() error {
	return e.err
}
