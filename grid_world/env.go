package grid_world

import (
	"fmt"
	"math/rand"
)

// The number of rejected samples tolerated per item before falling back to
// drawing directly from the remaining free cells.
const spawnRetries = 100

// Info carries per-step diagnostics that are not part of the observation.
type Info struct {
	Steps     int      `json:"steps"`
	Event     Event    `json:"event"`
	Target    Position `json:"target"`
	Distance  int      `json:"distance"`
	Delivered int      `json:"delivered"`
}

// Env is the waste collection grid world. An Env is owned by a single caller;
// Reset, Step and Observe are synchronous and do no locking.
//
// Per episode the actor alternates between seeking (not carrying, the target is
// the nearest active item) and carrying (the target is the deposit point) until
// every item has been delivered, after which the episode is done and only a
// Reset continues it.
type Env struct {
	cfg      Config
	rng      *rand.Rand
	deposits []DepositPoint

	actor        Actor
	items        []Item
	steps        int
	lastAction   *Action
	prevDistance int
	delivered    int

	lastReward float64
	terminated bool
	truncated  bool
}

// NewEnv validates the config and returns an Env ready to step. The random
// source is used for all spawn placement; when nil, one is seeded from cfg.Seed.
func NewEnv(cfg Config, rng *rand.Rand) (*Env, error) {
	deposits := depositsFor(cfg.Variant, cfg.GridSize)
	if err := cfg.validate(deposits); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	// Spawns were validated against the deposits; later edits to the caller's slice must not reach Reset.
	cfg.Spawns = append([]Position(nil), cfg.Spawns...)

	env := &Env{
		cfg:      cfg,
		rng:      rng,
		deposits: deposits,
	}
	if _, _, err := env.Reset(nil); err != nil {
		return nil, err
	}
	return env, nil
}

// Reset starts a new episode. A non-nil seed re-seeds the random source, making
// the episode layout reproducible.
func (env *Env) Reset(seed *int64) (Observation, Info, error) {
	if seed != nil {
		env.rng.Seed(*seed)
	}

	required := 1 + len(env.deposits) + env.cfg.NumItems
	if cells := env.cfg.GridSize * env.cfg.GridSize; required > cells {
		return nil, Info{}, fmt.Errorf("%w: %d distinct cells required, grid has %d", ErrConfiguration, required, cells)
	}

	occupied := make(map[Position]bool, required)
	for _, dp := range env.deposits {
		occupied[dp.Pos] = true
	}

	start := env.cfg.Start
	if env.cfg.RandomStart {
		start = env.sampleFree(occupied)
	}
	occupied[start] = true

	env.actor = Actor{Pos: start, CarriedKind: NONE}
	env.items = make([]Item, 0, env.cfg.NumItems)
	for i := 0; i < env.cfg.NumItems; i++ {
		var pos Position
		if len(env.cfg.Spawns) > 0 {
			pos = env.cfg.Spawns[i]
		} else {
			pos = env.sampleFree(occupied)
		}
		occupied[pos] = true
		env.items = append(env.items, Item{
			Pos:    pos,
			Kind:   env.kindOf(i),
			Active: true,
		})
	}

	env.steps = 0
	env.lastAction = nil
	env.delivered = 0
	env.lastReward = 0
	env.terminated = false
	env.truncated = false
	target := env.Target()
	env.prevDistance = env.actor.Pos.Manhattan(target)

	return env.Observe(), env.info(EVENT_RESET, target), nil
}

// Items alternate kinds by spawn index in the sorting variant.
func (env *Env) kindOf(index int) ItemKind {
	if !env.cfg.Variant.Typed() {
		return NONE
	}
	return ItemKind(index % NUM_KINDS)
}

// sampleFree draws a cell uniformly from those not in @occupied. Rejection
// sampling is tried first, bounded by spawnRetries; dense grids fall back to an
// explicit draw over the free cells, which is equally uniform. The caller
// guarantees at least one free cell.
func (env *Env) sampleFree(occupied map[Position]bool) Position {
	n := env.cfg.GridSize
	for i := 0; i < spawnRetries; i++ {
		pos := Position{env.rng.Intn(n), env.rng.Intn(n)}
		if !occupied[pos] {
			return pos
		}
	}

	free := make([]Position, 0, n*n-len(occupied))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if pos := (Position{x, y}); !occupied[pos] {
				free = append(free, pos)
			}
		}
	}
	return free[env.rng.Intn(len(free))]
}

// Step applies one action and returns the observation, the total reward, and
// whether the episode terminated (mission complete) or was truncated (step budget
// spent). Step never fails: illegal actions are absorbed as penalties.
func (env *Env) Step(action Action) (obs Observation, reward float64, terminated, truncated bool, info Info) {
	rw := &env.cfg.Rewards
	env.steps++

	if env.terminated {
		env.lastAction = &action
		env.lastReward = 0
		env.truncated = env.steps >= env.cfg.MaxSteps
		return env.Observe(), 0, true, env.truncated, env.info(EVENT_DONE, env.Target())
	}

	reward = rw.StepPenalty
	if env.lastAction != nil && *env.lastAction == action && action.IsMove() {
		reward += rw.RepeatPenalty
	}

	pre := env.prevDistance
	effect, event := env.apply(action)
	reward += effect

	target := env.Target()
	post := env.actor.Pos.Manhattan(target)
	reward += rw.ShapingGain * float64(pre-post)
	env.prevDistance = post

	env.lastAction = &action

	if env.missionComplete() {
		env.terminated = true
		reward += rw.CompletionBonus
	}
	env.truncated = env.steps >= env.cfg.MaxSteps
	env.lastReward = reward

	return env.Observe(), reward, env.terminated, env.truncated, env.info(event, target)
}

// apply executes the action's effect and returns its reward contribution.
func (env *Env) apply(action Action) (reward float64, event Event) {
	rw := &env.cfg.Rewards
	if !env.legal(action) {
		return rw.InvalidActionPenalty, EVENT_INVALID_ACTION
	}

	switch action {
	case MOVE_UP:
		return env.move(0, -1)
	case MOVE_DOWN:
		return env.move(0, 1)
	case MOVE_LEFT:
		return env.move(-1, 0)
	case MOVE_RIGHT:
		return env.move(1, 0)
	case PICK_UP:
		return env.pickUp()
	case DROP:
		return env.drop()
	default:
		// Unreachable: legal() admits only the cases above.
		return rw.InvalidActionPenalty, EVENT_INVALID_ACTION
	}
}

// legal reports whether the action belongs to the variant's action space.
func (env *Env) legal(action Action) bool {
	for _, a := range env.cfg.Variant.Actions() {
		if a == action {
			return true
		}
	}
	return false
}

// move clamps the displaced position to the grid. A clamped move is a wall bump.
func (env *Env) move(dx, dy int) (float64, Event) {
	next := Position{env.actor.Pos.X + dx, env.actor.Pos.Y + dy}
	if !env.cfg.inBounds(next) {
		return env.cfg.Rewards.WallPenalty, EVENT_BUMPED
	}
	env.actor.Pos = next
	return 0, EVENT_MOVED
}

func (env *Env) pickUp() (float64, Event) {
	rw := &env.cfg.Rewards
	if env.actor.Carrying {
		return rw.InvalidPickupPenalty, EVENT_INVALID_PICKUP
	}
	for i := range env.items {
		item := &env.items[i]
		if item.Active && item.Pos == env.actor.Pos {
			item.Active = false
			env.actor.Carrying = true
			env.actor.CarriedKind = item.Kind
			return rw.PickupReward, EVENT_PICKED_UP
		}
	}
	return rw.InvalidPickupPenalty, EVENT_INVALID_PICKUP
}

func (env *Env) drop() (float64, Event) {
	rw := &env.cfg.Rewards
	if !env.actor.Carrying {
		return rw.InvalidDropPenalty, EVENT_INVALID_DROP
	}

	wrongBin := false
	for _, dp := range env.deposits {
		if dp.Pos != env.actor.Pos {
			continue
		}
		if env.cfg.Variant.Typed() && dp.Kind != env.actor.CarriedKind {
			wrongBin = true
			continue
		}
		env.actor.Carrying = false
		env.actor.CarriedKind = NONE
		env.delivered++
		return rw.DropReward, EVENT_DROPPED
	}
	if wrongBin {
		return rw.WrongBinPenalty, EVENT_WRONG_BIN
	}
	return rw.InvalidDropPenalty, EVENT_INVALID_DROP
}

// missionComplete evaluates the termination condition. In the locate variant,
// reaching the item collects it.
func (env *Env) missionComplete() bool {
	if env.cfg.Variant == LOCATE {
		for i := range env.items {
			if env.items[i].Active && env.items[i].Pos == env.actor.Pos {
				env.items[i].Active = false
			}
		}
	}
	if env.actor.Carrying {
		return false
	}
	for _, item := range env.items {
		if item.Active {
			return false
		}
	}
	return true
}

// Target returns the cell that drives the shaping reward: the nearest active item
// when not carrying (ties broken by spawn order), else the deposit point that
// accepts the carried item. With no active items the target is the nearest deposit
// point, or the actor's own cell when the variant has none.
func (env *Env) Target() Position {
	if !env.actor.Carrying {
		if idx := env.nearestActive(); idx >= 0 {
			return env.items[idx].Pos
		}
		return env.nearestDeposit()
	}

	for _, dp := range env.deposits {
		if !env.cfg.Variant.Typed() || dp.Kind == env.actor.CarriedKind {
			return dp.Pos
		}
	}
	return env.actor.Pos
}

// nearestActive returns the index of the nearest active item, or -1.
func (env *Env) nearestActive() int {
	best, bestDist := -1, 0
	for i, item := range env.items {
		if !item.Active {
			continue
		}
		if d := env.actor.Pos.Manhattan(item.Pos); best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (env *Env) nearestDeposit() Position {
	target, best := env.actor.Pos, -1
	for _, dp := range env.deposits {
		if d := env.actor.Pos.Manhattan(dp.Pos); best < 0 || d < best {
			target, best = dp.Pos, d
		}
	}
	return target
}

func (env *Env) info(event Event, target Position) Info {
	return Info{
		Steps:     env.steps,
		Event:     event,
		Target:    target,
		Distance:  env.actor.Pos.Manhattan(target),
		Delivered: env.delivered,
	}
}

// Observe encodes the current state. It has no side effects.
// Untyped variants: [ax, ay, carrying, (ix, iy, active) per item in spawn order].
// Typed variant: [ax, ay, kind, carrying], where kind is the carried item's kind,
// else the kind of the nearest active item, else -1.
func (env *Env) Observe() Observation {
	a := env.actor
	if env.cfg.Variant.Typed() {
		kind := NONE
		if a.Carrying {
			kind = a.CarriedKind
		} else if idx := env.nearestActive(); idx >= 0 {
			kind = env.items[idx].Kind
		}
		return Observation{a.Pos.X, a.Pos.Y, int(kind), boolToInt(a.Carrying)}
	}

	obs := make(Observation, 0, 3+3*len(env.items))
	obs = append(obs, a.Pos.X, a.Pos.Y, boolToInt(a.Carrying))
	for _, item := range env.items {
		obs = append(obs, item.Pos.X, item.Pos.Y, boolToInt(item.Active))
	}
	return obs
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Actor returns the actor state.
func (env *Env) Actor() Actor { return env.actor }

// Items returns a copy of the items in spawn order.
func (env *Env) Items() []Item {
	return append([]Item(nil), env.items...)
}

// Deposits returns a copy of the fixed deposit points.
func (env *Env) Deposits() []DepositPoint {
	return append([]DepositPoint(nil), env.deposits...)
}

func (env *Env) GridSize() int    { return env.cfg.GridSize }
func (env *Env) Steps() int       { return env.steps }
func (env *Env) MaxSteps() int    { return env.cfg.MaxSteps }
func (env *Env) Variant() Variant { return env.cfg.Variant }

// Config returns a copy of the env's config, spawns included.
func (env *Env) Config() Config {
	cfg := env.cfg
	cfg.Spawns = append([]Position(nil), env.cfg.Spawns...)
	return cfg
}

// Done reports whether the current episode has terminated or been truncated.
func (env *Env) Done() bool { return env.terminated || env.truncated }
