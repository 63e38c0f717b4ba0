package reinforcement

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"wastegrid/atomic_float"
)

// Stats accumulates episode summaries. Counters and sums are atomics so that
// progress callbacks may read them while a consumer is still folding episodes in.
type Stats struct {
	episodes   atomic.Int64
	terminated atomic.Int64
	truncated  atomic.Int64
	steps      atomic.Int64
	total      *atomic_float.AtomicFloat64
	best       *atomic_float.AtomicFloat64

	mu      sync.Mutex
	returns []float64
}

func NewStats() *Stats {
	return &Stats{
		total: atomic_float.NewAtomicFloat64(0),
		best:  atomic_float.NewAtomicFloat64(-math.MaxFloat64),
	}
}

// Observe folds one episode into the stats.
func (stats *Stats) Observe(res *EpisodeResult) {
	stats.episodes.Add(1)
	stats.steps.Add(int64(res.Steps))
	if res.Terminated {
		stats.terminated.Add(1)
	} else if res.Truncated {
		stats.truncated.Add(1)
	}
	stats.total.Add(res.Return)
	stats.best.Max(res.Return)

	stats.mu.Lock()
	stats.returns = append(stats.returns, res.Return)
	stats.mu.Unlock()
}

func (stats *Stats) Episodes() int { return int(stats.episodes.Load()) }

// MeanReturn is zero before the first episode.
func (stats *Stats) MeanReturn() float64 {
	n := stats.episodes.Load()
	if n == 0 {
		return 0
	}
	return stats.total.AtomicRead() / float64(n)
}

// BestReturn is zero before the first episode.
func (stats *Stats) BestReturn() float64 {
	if stats.episodes.Load() == 0 {
		return 0
	}
	return stats.best.AtomicRead()
}

// SuccessRate is the fraction of episodes that terminated by completing the mission.
func (stats *Stats) SuccessRate() float64 {
	n := stats.episodes.Load()
	if n == 0 {
		return 0
	}
	return float64(stats.terminated.Load()) / float64(n)
}

func (stats *Stats) MeanSteps() float64 {
	n := stats.episodes.Load()
	if n == 0 {
		return 0
	}
	return float64(stats.steps.Load()) / float64(n)
}

func (stats *Stats) Truncations() int { return int(stats.truncated.Load()) }

// Returns copies the per-episode returns in the order they were observed.
func (stats *Stats) Returns() []float64 {
	stats.mu.Lock()
	defer stats.mu.Unlock()
	return append([]float64(nil), stats.returns...)
}

// Cumulative returns the running sum of the episode returns.
func (stats *Stats) Cumulative() []float64 {
	returns := stats.Returns()
	sum := 0.0
	for i, r := range returns {
		sum += r
		returns[i] = sum
	}
	return returns
}

// Aggregate drains @episodes into @stats, passing each episode to the visitors
// first. It returns the first visitor error, after which episodes are discarded
// until the channel closes, or ctx.Err() if ctx is done first.
func Aggregate(
	ctx context.Context,
	episodes <-chan *EpisodeResult,
	stats *Stats,
	visitors ...func(*EpisodeResult) error,
) error {
	var firstErr error
	for {
		select {
		case <-ctx.Done():
			if firstErr != nil {
				return firstErr
			}
			return ctx.Err()
		case res, ok := <-episodes:
			if !ok {
				return firstErr
			}
			if firstErr != nil {
				continue
			}
			for _, visit := range visitors {
				if err := visit(res); err != nil {
					firstErr = err
					break
				}
			}
			if firstErr == nil {
				stats.Observe(res)
			}
		}
	}
}
