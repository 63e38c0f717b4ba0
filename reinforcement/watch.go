package reinforcement

import (
	"context"
	"math/rand"
	"time"

	. "wastegrid/grid_world"

	channerics "github.com/niceyeti/channerics/channels"
)

// Watch steps a single env with @policy once per @tick and emits a snapshot after
// every step, resetting the env when an episode ends. Snapshots are dropped if the
// consumer is not ready, so a slow observer never stalls the env. The channel
// closes when ctx is done.
func Watch(
	ctx context.Context,
	env *Env,
	policy Policy,
	rng *rand.Rand,
	tick time.Duration,
	onEpisode func(*EpisodeResult),
) <-chan Snapshot {
	snapshots := make(chan Snapshot, 1)
	go func() {
		defer close(snapshots)

		res := &EpisodeResult{}
		start := time.Now()
		index := 0
		for range channerics.NewTicker(ctx.Done(), tick) {
			if env.Done() {
				res.Steps = env.Steps()
				res.Duration = time.Since(start)
				res.Final = env.Snapshot()
				res.Index = index
				if onEpisode != nil {
					onEpisode(res)
				}
				if _, _, err := env.Reset(nil); err != nil {
					return
				}
				res = &EpisodeResult{}
				start = time.Now()
				index++
			} else {
				_, reward, terminated, truncated, _ := env.Step(policy.Act(env, rng))
				res.Return += reward
				res.Terminated = terminated
				res.Truncated = truncated
			}

			select {
			case snapshots <- env.Snapshot():
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return snapshots
}
