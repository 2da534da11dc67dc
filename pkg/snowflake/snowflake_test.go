package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeRejectsOutOfRange(t *testing.T) {
	_, err := NewNode(-1)
	assert.Error(t, err)

	_, err = NewNode(1024)
	assert.Error(t, err)
}

func TestGenerateIsStrictlyIncreasing(t *testing.T) {
	node, err := NewNode(3)
	require.NoError(t, err)

	prev := node.Generate()
	for i := 0; i < 10000; i++ {
		next := node.Generate()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestGenerateSurvivesClockRollback(t *testing.T) {
	node, err := NewNode(1)
	require.NoError(t, err)

	clock := int64(1704067300000)
	node.now = func() int64 { return clock }

	first := node.Generate()
	clock -= 50
	second := node.Generate()

	assert.Greater(t, second, first)
}

func TestGenerateConcurrentUnique(t *testing.T) {
	node, err := NewNode(2)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[int64]struct{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := node.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 8*500)
}
