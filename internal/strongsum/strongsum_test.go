package strongsum_test

import (
	"testing"

	"github.com/blocksync/zsyncgo/internal/strongsum"
	"github.com/hooklift/assert"
)

func TestSumIsDeterministic(t *testing.T) {
	h := strongsum.New()

	a := h.Sum([]byte("ABCD"))
	b := h.Sum([]byte("ABCD"))

	assert.Equals(t, a, b)
}

func TestSumDiffersByInput(t *testing.T) {
	h := strongsum.New()

	a := h.Sum([]byte("ABCD"))
	b := h.Sum([]byte("EFGH"))

	assert.Cond(t, a != b, "digests of different blocks should differ")
}

func TestSumResetsBetweenCalls(t *testing.T) {
	h := strongsum.New()

	_ = h.Sum([]byte("some long previous block of data"))
	a := h.Sum([]byte("ABCD"))

	h2 := strongsum.New()
	b := h2.Sum([]byte("ABCD"))

	assert.Equals(t, a, b)
}
