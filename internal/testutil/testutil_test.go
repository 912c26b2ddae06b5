package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "call-1", gen.Generate())
	assert.Equal(t, "call-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "call-1", gen.Generate())
}

func TestSequenceGenerator_Concurrent(t *testing.T) {
	gen := NewSequenceGenerator("log")
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	assert.True(t, seen["log-50"])
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	require.PanicsWithValue(t, "FixedGenerator: all IDs exhausted", func() {
		gen.Generate()
	})
}

func TestSteppingClock(t *testing.T) {
	clock := NewSteppingClock()
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}
