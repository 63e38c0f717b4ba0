package reinforcement

import (
	"errors"
	"fmt"
	"math/rand"

	. "wastegrid/grid_world"
)

// ErrUnknownPolicy is returned by NewPolicy for unrecognized policy names.
var ErrUnknownPolicy = errors.New("unknown policy")

// Policy selects the next action for the current state of @env. Implementations
// must only read the env; stepping it is the caller's job.
type Policy interface {
	Act(env *Env, rng *rand.Rand) Action
}

// RandomPolicy draws uniformly from the full action space, including actions
// the variant treats as invalid.
type RandomPolicy struct{}

func (RandomPolicy) Act(_ *Env, rng *rand.Rand) Action {
	return AllActions[rng.Intn(len(AllActions))]
}

// RandomMovesPolicy draws uniformly from the four movements.
type RandomMovesPolicy struct{}

func (RandomMovesPolicy) Act(_ *Env, rng *rand.Rand) Action {
	return MoveActions[rng.Intn(len(MoveActions))]
}

// OraclePolicy is a hand-written expert: it walks to the current target along X
// then Y, picks up whatever it stands on, and drops at the accepting bin. With
// probability Epsilon it instead plays a random action from the variant's space.
type OraclePolicy struct {
	Epsilon float64
}

func (p OraclePolicy) Act(env *Env, rng *rand.Rand) Action {
	if p.Epsilon > 0 && rng.Float64() < p.Epsilon {
		actions := env.Variant().Actions()
		return actions[rng.Intn(len(actions))]
	}

	actor := env.Actor()
	target := env.Target()
	if env.Variant() != LOCATE {
		if actor.Carrying && actor.Pos == target {
			return DROP
		}
		if !actor.Carrying && itemAt(env, actor.Pos) {
			return PICK_UP
		}
	}

	switch {
	case target.X > actor.Pos.X:
		return MOVE_RIGHT
	case target.X < actor.Pos.X:
		return MOVE_LEFT
	case target.Y > actor.Pos.Y:
		return MOVE_DOWN
	case target.Y < actor.Pos.Y:
		return MOVE_UP
	}
	// On target with nothing to do; only reachable once the episode is done.
	return MOVE_UP
}

func itemAt(env *Env, pos Position) bool {
	for _, item := range env.Items() {
		if item.Active && item.Pos == pos {
			return true
		}
	}
	return false
}

// NewPolicy builds the policy named in the config.
func NewPolicy(cfg PolicyConfig) (Policy, error) {
	switch cfg.Name {
	case "", "random-moves":
		return RandomMovesPolicy{}, nil
	case "random":
		return RandomPolicy{}, nil
	case "oracle":
		return OraclePolicy{Epsilon: cfg.Epsilon}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, cfg.Name)
	}
}
