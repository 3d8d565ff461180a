package deconz

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// transaction counter wraps 255 -> 1, never 0.
func TestTxCounterWraps(t *testing.T) {
	var c txCounter
	c.v = 254
	assert.Equal(t, byte(255), c.next())
	assert.Equal(t, byte(1), c.next())
}

// transaction IDs observed over any 255-request window (the full 1..255
// range) are distinct.
func TestTxCounterDistinctOverFullWindow(t *testing.T) {
	var c txCounter
	seen := make(map[byte]bool)
	for i := 0; i < 255; i++ {
		v := c.next()
		assert.False(t, seen[v], "duplicate tsn %d", v)
		seen[v] = true
		assert.NotEqual(t, byte(0), v)
	}
	assert.Len(t, seen, 255)
}

func TestTxCounterConcurrentSafe(t *testing.T) {
	var c txCounter
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[byte]int)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := c.next()
			mu.Lock()
			seen[v]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	total := 0
	for _, n := range seen {
		total += n
	}
	assert.Equal(t, 50, total)
	assert.Len(t, seen, 50, "concurrent callers received duplicate ids")
}
