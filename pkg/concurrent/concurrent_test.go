package concurrent

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rigsmith/pkg/sequence"
)

func TestConcurrentVisitsAll(t *testing.T) {
	var sum atomic.Int64
	err := Concurrent(sequence.From([]int{1, 2, 3, 4}), func(v int) error {
		sum.Add(int64(v))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}

func TestConcurrentReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := Limited(sequence.From([]int{1, 2, 3}), 2, func(v int) error {
		if v == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestCollectKeepsOrder(t *testing.T) {
	out, err := Collect(sequence.From([]string{"a", "bb", "ccc"}), 2, func(s string) (int, error) {
		return len(s), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}
