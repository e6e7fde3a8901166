package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentGenerations bounds in-flight model calls across all sessions
const DefaultMaxConcurrentGenerations = 4

// GenerationLimiter caps concurrent calls to the generation backend.
// Persona replies and coach feedback share the same budget.
type GenerationLimiter struct {
	sem      *semaphore.Weighted
	max      int64
	inFlight atomic.Int64
}

// NewGenerationLimiter creates a limiter allowing max concurrent generations
func NewGenerationLimiter(max int) (*GenerationLimiter, error) {
	if max < 1 {
		return nil, fmt.Errorf("max concurrent generations must be >= 1, got: %d", max)
	}
	return &GenerationLimiter{
		sem: semaphore.NewWeighted(int64(max)),
		max: int64(max),
	}, nil
}

// Acquire blocks until a slot is free or ctx is done
func (l *GenerationLimiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inFlight.Add(1)
	return nil
}

// Release frees a slot taken by Acquire
func (l *GenerationLimiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Do runs fn while holding a slot
func (l *GenerationLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Stats returns current usage. A nil limiter reports no slots.
func (l *GenerationLimiter) Stats() LimiterStats {
	if l == nil {
		return LimiterStats{}
	}
	return LimiterStats{Current: int(l.inFlight.Load()), Max: int(l.max)}
}

// LimiterStats represents generation slot usage
type LimiterStats struct {
	Current int
	Max     int
}
