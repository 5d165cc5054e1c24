package async

import "sync"

// LoadState is a value that is either still loading or done. Once done it never reverts to loading.
// A LoadState is safe for concurrent use.
type LoadState[T any] struct {
	mu    *sync.Mutex
	ch    <-chan T
	value T
	done  bool
}

// NewLoading creates a LoadState that resolves with the first value received from ch.
// A closed channel resolves the state with the zero value of T.
//
// Parameters:
//   - ch: the channel the pending computation delivers its result on
//
// Returns:
//   - *LoadState[T]: a LoadState in the loading state
func NewLoading[T any](ch <-chan T) *LoadState[T] {
	return &LoadState[T]{mu: &sync.Mutex{}, ch: ch}
}

// NewDone creates a LoadState that is already resolved with v.
//
// Parameters:
//   - v: the resolved value
//
// Returns:
//   - *LoadState[T]: a LoadState in the done state
func NewDone[T any](v T) *LoadState[T] {
	return &LoadState[T]{mu: &sync.Mutex{}, value: v, done: true}
}

// Poll checks for completion without blocking.
//
// Returns:
//   - T: the resolved value, or the zero value while loading
//   - bool: true once the state is done
func (s *LoadState[T]) Poll() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.value, true
	}
	select {
	case v := <-s.ch:
		s.value = v
		s.done = true
		s.ch = nil
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// IsLoaded reports whether the state is done, polling the pending computation once.
//
// Returns:
//   - bool: true once the state is done
func (s *LoadState[T]) IsLoaded() bool {
	_, ok := s.Poll()
	return ok
}

// Value returns the resolved value without polling.
//
// Returns:
//   - T: the resolved value, or the zero value while loading
//   - bool: true if the state is done
func (s *LoadState[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.done
}
