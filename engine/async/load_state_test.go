package async

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDone(t *testing.T) {
	s := NewDone("hero.png")
	v, ok := s.Poll()
	assert.True(t, ok)
	assert.Equal(t, "hero.png", v)
	assert.True(t, s.IsLoaded())
}

func TestLoadingResolvesOnce(t *testing.T) {
	ch := make(chan string, 1)
	s := NewLoading(ch)

	v, ok := s.Poll()
	assert.False(t, ok)
	assert.Empty(t, v)
	_, ok = s.Value()
	assert.False(t, ok)

	ch <- "a.png"
	v, ok = s.Poll()
	require.True(t, ok)
	assert.Equal(t, "a.png", v)

	// a second send is never observed
	ch <- "b.png"
	v, ok = s.Poll()
	assert.True(t, ok)
	assert.Equal(t, "a.png", v)
	v, ok = s.Value()
	assert.True(t, ok)
	assert.Equal(t, "a.png", v)
}

func TestClosedChannelResolvesZero(t *testing.T) {
	ch := make(chan int)
	close(ch)
	s := NewLoading(ch)
	v, ok := s.Poll()
	assert.True(t, ok)
	assert.Zero(t, v)
}

func TestConcurrentPoll(t *testing.T) {
	ch := make(chan int, 1)
	s := NewLoading(ch)
	ch <- 7

	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !s.IsLoaded() {
			}
			results[i], _ = s.Value()
		}()
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, 7, r)
	}
}
