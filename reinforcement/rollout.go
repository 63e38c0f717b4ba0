package reinforcement

/*
Rollouts: a fixed number of workers each own an environment, play whole episodes with
a policy and queue them; the queues are fanned in to a single channel for the consumer.
Workers share nothing but the episode budget. Each worker seeds its own random sources
from the configured seed and its index, so a run is reproducible per worker.
*/

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	. "wastegrid/grid_world"

	"github.com/google/uuid"
	channerics "github.com/niceyeti/channerics/channels"
)

// Separates the seeds of each worker's env and policy sources.
const (
	WORKER_SEED_STRIDE = 7919
	POLICY_SEED_OFFSET = 104729
)

// ProgressFunc is a callback by which the rollout can lend progress details,
// while exercising some level of control over its cancellation to prevent blocking.
// ProgressFunc is synchronous/blocking and should be defined to complete quickly.
// It is called concurrently by the workers.
type ProgressFunc func(context.Context, int)

// Transition is one step of an episode.
type Transition struct {
	Action      Action      `json:"action"`
	Reward      float64     `json:"reward"`
	Observation Observation `json:"observation"`
	// Features is the observation scaled into [0, 1].
	Features   []float64 `json:"features"`
	Terminated bool      `json:"terminated"`
	Truncated  bool      `json:"truncated"`
	Info       Info      `json:"info"`
}

// EpisodeResult is a completed episode and its summary.
type EpisodeResult struct {
	ID     string
	Worker int
	// Index is the episode's sequence number within its worker.
	Index       int
	Steps       int
	Return      float64
	Terminated  bool
	Truncated   bool
	Duration    time.Duration
	Initial     Observation
	Transitions []Transition
	Final       Snapshot
}

// AvgReward is the mean reward per step.
func (res *EpisodeResult) AvgReward() float64 {
	if res.Steps == 0 {
		return 0
	}
	return res.Return / float64(res.Steps)
}

// Run is async: it builds one env per worker and returns the fanned-in channel of
// their episodes. The channel closes once cfg.Episodes have been generated in total,
// or ctx is done. @nworkers overrides cfg.Workers when positive.
func Run(
	ctx context.Context,
	cfg *RunConfig,
	nworkers int,
	progressFn ProgressFunc,
) (<-chan *EpisodeResult, error) {
	if nworkers <= 0 {
		nworkers = cfg.Workers
	}
	if nworkers <= 0 {
		nworkers = 1
	}

	envCfg, err := cfg.EnvConfig()
	if err != nil {
		return nil, err
	}
	policy, err := NewPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	// Envs are built up front so that configuration errors surface here, not in a worker.
	envs := make([]*Env, 0, nworkers)
	for i := 0; i < nworkers; i++ {
		seed := envCfg.Seed + int64(i)*WORKER_SEED_STRIDE
		env, err := NewEnv(envCfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", i, err)
		}
		envs = append(envs, env)
	}

	if progressFn == nil {
		progressFn = func(context.Context, int) {}
	}

	var claimed, completed int64
	budget := int64(cfg.Episodes)
	claim := func() bool {
		return budget <= 0 || atomic.AddInt64(&claimed, 1) <= budget
	}

	worker := func(
		done <-chan struct{},
		id int,
		env *Env,
		rng *rand.Rand,
	) <-chan *EpisodeResult {
		episodes := make(chan *EpisodeResult)
		go func() {
			defer close(episodes)

			for index := 0; ; index++ {
				// done-guard
				select {
				case <-done:
					return
				default:
				}
				if !claim() {
					return
				}

				res, err := PlayEpisode(ctx, env, policy, rng)
				if err != nil {
					// Only cancellation interrupts an episode.
					return
				}
				res.Worker = id
				res.Index = index

				select {
				case episodes <- res:
				case <-done:
					return
				}
				progressFn(ctx, int(atomic.AddInt64(&completed, 1)))
			}
		}()
		return episodes
	}

	workers := []<-chan *EpisodeResult{}
	for i, env := range envs {
		seed := envCfg.Seed + int64(i)*WORKER_SEED_STRIDE + POLICY_SEED_OFFSET
		ch := worker(ctx.Done(), i, env, rand.New(rand.NewSource(seed)))
		workers = append(workers, ch)
	}
	return channerics.Merge(ctx.Done(), workers...), nil
}

// PlayEpisode resets @env and steps it with @policy until it terminates or is
// truncated. It returns ctx.Err() if ctx is done first.
func PlayEpisode(
	ctx context.Context,
	env *Env,
	policy Policy,
	rng *rand.Rand,
) (*EpisodeResult, error) {
	obs, _, err := env.Reset(nil)
	if err != nil {
		return nil, err
	}

	res := &EpisodeResult{
		ID:      uuid.NewString(),
		Initial: obs,
	}
	cfg := env.Config()
	start := time.Now()
	for !env.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action := policy.Act(env, rng)
		obs, reward, terminated, truncated, info := env.Step(action)
		res.Transitions = append(res.Transitions, Transition{
			Action:      action,
			Reward:      reward,
			Observation: obs,
			Features:    Normalize(cfg, obs).RawVector().Data,
			Terminated:  terminated,
			Truncated:   truncated,
			Info:        info,
		})
		res.Return += reward
		res.Terminated = terminated
		res.Truncated = truncated
	}
	res.Steps = env.Steps()
	res.Duration = time.Since(start)
	res.Final = env.Snapshot()
	return res, nil
}

// LogEpisode prints the one-line episode summary.
func LogEpisode(res *EpisodeResult) {
	log.Printf(
		"episode %d (worker %d): return %.2f, steps %d, avg reward/step %.3f, terminated %t, duration %v\n",
		res.Index,
		res.Worker,
		res.Return,
		res.Steps,
		res.AvgReward(),
		res.Terminated,
		res.Duration)
}
