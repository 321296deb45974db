package planner

import (
	"math/rand"
	"sync"
	"time"
)

// Source supplies the bounded randomness used by the scheduler (activity count
// per day, visit durations). Injecting it keeps generation reproducible in
// tests while production uses a time-seeded source.
type Source interface {
	// IntN returns a uniform value in [0, n). n must be positive.
	IntN(n int) int
}

// NewSeededSource returns a Source backed by math/rand with the given seed.
func NewSeededSource(seed int64) Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

// NewTimeSource returns a Source seeded from the current time.
func NewTimeSource() Source {
	return NewSeededSource(time.Now().UnixNano())
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// FixedSource always returns its configured value (clamped to the requested
// bound). Used by tests that need exact schedules.
type FixedSource struct {
	Value int
}

func (s FixedSource) IntN(n int) int {
	if s.Value < 0 || n <= 0 {
		return 0
	}
	if s.Value >= n {
		return n - 1
	}
	return s.Value
}
