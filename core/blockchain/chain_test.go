package blockchain

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChain(t *testing.T) {
	c := NewChain()
	assert.Equal(t, 1, c.Len())
	assert.True(t, IsGenesis(c.Latest()))
}

func TestTryAppend(t *testing.T) {
	c := NewChain()
	b1 := NextBlockAt(c.Latest(), MustParseData(`[1]`), time.Unix(1600000001, 0))

	require.NoError(t, c.TryAppend(b1))
	assert.Equal(t, 2, c.Len())
	assert.Same(t, b1, c.Latest())

	before := c.Blocks()

	// stale: built on genesis again
	stale := NextBlockAt(Genesis(), MustParseData(`[2]`), time.Unix(1600000002, 0))
	err := c.TryAppend(stale)
	var indexErr ErrIndexMismatch
	assert.True(t, errors.As(err, &indexErr))

	// tampered
	b2 := NextBlockAt(b1, MustParseData(`[2]`), time.Unix(1600000002, 0))
	tampered := *b2
	tampered.Timestamp++
	err = c.TryAppend(&tampered)
	var hashErr ErrHashMismatch
	assert.True(t, errors.As(err, &hashErr))

	if diff := cmp.Diff(before, c.Blocks()); diff != "" {
		t.Fatalf("failed append changed the chain (-before +after):\n%s", diff)
	}
}

func TestReplace(t *testing.T) {
	c := NewChain()
	local := buildChain(3, "local")
	for _, b := range local[1:] {
		require.NoError(t, c.TryAppend(b))
	}

	// same length fork
	err := c.Replace(buildChain(3, "fork"))
	var notLonger ErrChainNotLonger
	require.True(t, errors.As(err, &notLonger))
	assert.Equal(t, 3, notLonger.Current)
	assert.Equal(t, 3, c.Len())

	// longer but invalid
	invalid := buildChain(5, "fork")
	invalid[2] = local[2]
	assert.Error(t, c.Replace(invalid))
	assert.Equal(t, local[2], c.Latest())

	// longer and valid
	fork := buildChain(4, "fork")
	require.NoError(t, c.Replace(fork))
	assert.Equal(t, 4, c.Len())
	assert.Empty(t, cmp.Diff(fork, c.Blocks()))

	// the store keeps its own slice
	fork[3] = nil
	assert.NotNil(t, c.Latest())

	assert.ErrorIs(t, c.Replace(nil), ErrEmptyChain)
}

func TestConcurrentAppendSingleWinner(t *testing.T) {
	c := NewChain()
	tip := c.Latest()

	const writers = 16
	var wg sync.WaitGroup
	var mutex sync.Mutex
	succeeded := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := NextBlockAt(tip, MustParseData(fmt.Sprintf("%d", i)), time.Unix(1600000000, 0))
			if c.TryAppend(b) == nil {
				mutex.Lock()
				succeeded++
				mutex.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, c.Len())
	assert.NoError(t, IsValidChain(c.Blocks()))
}
