package grid_world

import (
	"errors"
	"fmt"
)

// Position is a grid cell. The origin (0,0) is the top left cell when displayed,
// so MOVE_UP decreases Y and MOVE_DOWN increases it.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Manhattan returns the L1 distance between two cells.
func (p Position) Manhattan(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// ItemKind types waste items and the bins that accept them. Untyped variants
// use NONE for both items and bins.
type ItemKind int

const (
	NONE ItemKind = iota - 1
	RECYCLABLE
	NON_RECYCLABLE
	NUM_KINDS = 2
)

func (k ItemKind) String() string {
	switch k {
	case RECYCLABLE:
		return "recyclable"
	case NON_RECYCLABLE:
		return "non-recyclable"
	default:
		return "none"
	}
}

// Item is a collectible piece of waste. Items are never removed from an episode,
// only deactivated, so that their index in the observation is stable.
type Item struct {
	Pos    Position `json:"pos"`
	Kind   ItemKind `json:"kind"`
	Active bool     `json:"active"`
}

// Actor is the controllable agent. CarriedKind is only meaningful while Carrying.
type Actor struct {
	Pos         Position `json:"pos"`
	Carrying    bool     `json:"carrying"`
	CarriedKind ItemKind `json:"carriedKind"`
}

// DepositPoint is a fixed bin location.
type DepositPoint struct {
	Pos  Position `json:"pos"`
	Kind ItemKind `json:"kind"`
}

// Action is the agent's discrete action space. Every value, including those
// outside the defined range, is valid to submit to Step.
type Action int

const (
	MOVE_UP Action = iota
	MOVE_DOWN
	MOVE_LEFT
	MOVE_RIGHT
	PICK_UP
	DROP
	NUM_ACTIONS
)

// MoveActions is the action space of movement-only variants.
var MoveActions = []Action{MOVE_UP, MOVE_DOWN, MOVE_LEFT, MOVE_RIGHT}

// AllActions is the full action space.
var AllActions = []Action{MOVE_UP, MOVE_DOWN, MOVE_LEFT, MOVE_RIGHT, PICK_UP, DROP}

// IsMove reports whether the action is one of the four movements.
func (a Action) IsMove() bool {
	return a >= MOVE_UP && a <= MOVE_RIGHT
}

func (a Action) String() string {
	switch a {
	case MOVE_UP:
		return "up"
	case MOVE_DOWN:
		return "down"
	case MOVE_LEFT:
		return "left"
	case MOVE_RIGHT:
		return "right"
	case PICK_UP:
		return "pickup"
	case DROP:
		return "drop"
	default:
		return fmt.Sprintf("invalid(%d)", int(a))
	}
}

// Variant selects the rule set of an Env.
type Variant string

const (
	// COLLECTION: pick up every item and drop each at the single bin.
	COLLECTION Variant = "collection"
	// LOCATE: movement only, a single item, done when the actor reaches it.
	LOCATE Variant = "locate"
	// SORTING: typed items must be dropped at the bin of matching kind.
	SORTING Variant = "sorting"
)

// Actions returns the action space of the variant.
func (v Variant) Actions() []Action {
	if v == LOCATE {
		return MoveActions
	}
	return AllActions
}

// Typed reports whether items and bins carry a kind.
func (v Variant) Typed() bool {
	return v == SORTING
}

// Event describes the effect of the last action, for logging and observers.
type Event string

const (
	EVENT_RESET          Event = "reset"
	EVENT_MOVED          Event = "moved"
	EVENT_BUMPED         Event = "bumped"
	EVENT_PICKED_UP      Event = "picked_up"
	EVENT_INVALID_PICKUP Event = "invalid_pickup"
	EVENT_DROPPED        Event = "dropped"
	EVENT_WRONG_BIN      Event = "wrong_bin"
	EVENT_INVALID_DROP   Event = "invalid_drop"
	EVENT_INVALID_ACTION Event = "invalid_action"
	EVENT_DONE           Event = "done"
)

// Rewards holds every tunable reward magnitude. Penalties are negative values.
type Rewards struct {
	StepPenalty          float64 `json:"stepPenalty"`
	RepeatPenalty        float64 `json:"repeatPenalty"`
	WallPenalty          float64 `json:"wallPenalty"`
	PickupReward         float64 `json:"pickupReward"`
	InvalidPickupPenalty float64 `json:"invalidPickupPenalty"`
	DropReward           float64 `json:"dropReward"`
	InvalidDropPenalty   float64 `json:"invalidDropPenalty"`
	WrongBinPenalty      float64 `json:"wrongBinPenalty"`
	InvalidActionPenalty float64 `json:"invalidActionPenalty"`
	ShapingGain          float64 `json:"shapingGain"`
	CompletionBonus      float64 `json:"completionBonus"`
}

var (
	// CollectionRewards uses the heavy penalties for illegal pickup/drop.
	CollectionRewards = Rewards{
		StepPenalty:          -0.1,
		RepeatPenalty:        -0.05,
		WallPenalty:          -1,
		PickupReward:         10,
		InvalidPickupPenalty: -5,
		DropReward:           30,
		InvalidDropPenalty:   -5,
		WrongBinPenalty:      -5,
		InvalidActionPenalty: -1,
		ShapingGain:          1.0,
		CompletionBonus:      20,
	}

	// LocateRewards has no pickup/drop; arrival is the completion bonus.
	LocateRewards = Rewards{
		StepPenalty:          -0.1,
		RepeatPenalty:        -0.05,
		WallPenalty:          -1,
		InvalidActionPenalty: -1,
		ShapingGain:          1.0,
		CompletionBonus:      10,
	}

	// SortingRewards uses flat penalties for illegal pickup/drop and a heavier
	// one for dropping at the wrong bin.
	SortingRewards = Rewards{
		StepPenalty:          -0.1,
		RepeatPenalty:        -0.05,
		WallPenalty:          -1,
		PickupReward:         10,
		InvalidPickupPenalty: -1,
		DropReward:           30,
		InvalidDropPenalty:   -1,
		WrongBinPenalty:      -5,
		InvalidActionPenalty: -1,
		ShapingGain:          1.0,
		CompletionBonus:      20,
	}
)

// Config holds the constructor parameters of an Env.
type Config struct {
	Variant  Variant
	GridSize int
	NumItems int
	MaxSteps int
	// Start is the actor's initial cell unless RandomStart is set.
	Start       Position
	RandomStart bool
	// Spawns optionally fixes the item cells, in spawn order, instead of sampling them.
	Spawns  []Position
	Rewards Rewards
	// Seed seeds the random source when NewEnv is not given one.
	Seed int64
}

// DefaultConfig returns the reference parameters of each variant.
func DefaultConfig(variant Variant) Config {
	cfg := Config{
		Variant:  variant,
		GridSize: 5,
		NumItems: 3,
		MaxSteps: 100,
		Start:    Position{0, 0},
	}
	switch variant {
	case LOCATE:
		cfg.NumItems = 1
		cfg.MaxSteps = 50
		cfg.Rewards = LocateRewards
	case SORTING:
		cfg.Rewards = SortingRewards
	default:
		cfg.Rewards = CollectionRewards
	}
	return cfg
}

// ErrConfiguration is returned when an Env cannot be built or reset from its Config.
var ErrConfiguration = errors.New("invalid grid world configuration")

// depositsFor places the bins of a variant: the untyped bin at the bottom right,
// and for sorting a second, non-recyclable bin at the bottom left.
func depositsFor(variant Variant, gridSize int) []DepositPoint {
	last := gridSize - 1
	switch variant {
	case LOCATE:
		return nil
	case SORTING:
		return []DepositPoint{
			{Pos: Position{last, last}, Kind: RECYCLABLE},
			{Pos: Position{0, last}, Kind: NON_RECYCLABLE},
		}
	default:
		return []DepositPoint{{Pos: Position{last, last}, Kind: NONE}}
	}
}

func (cfg *Config) inBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < cfg.GridSize && p.Y < cfg.GridSize
}

// validate checks the config against the fixed deposit layout.
func (cfg *Config) validate(deposits []DepositPoint) error {
	switch cfg.Variant {
	case COLLECTION, LOCATE, SORTING:
	default:
		return fmt.Errorf("%w: unknown variant %q", ErrConfiguration, cfg.Variant)
	}
	if cfg.GridSize < 1 {
		return fmt.Errorf("%w: grid size %d", ErrConfiguration, cfg.GridSize)
	}
	if cfg.NumItems < 1 {
		return fmt.Errorf("%w: %d items", ErrConfiguration, cfg.NumItems)
	}
	if cfg.Variant == LOCATE && cfg.NumItems != 1 {
		return fmt.Errorf("%w: locate requires exactly one item, got %d", ErrConfiguration, cfg.NumItems)
	}
	if cfg.MaxSteps < 1 {
		return fmt.Errorf("%w: max steps %d", ErrConfiguration, cfg.MaxSteps)
	}

	required := 1 + len(deposits) + cfg.NumItems
	if cells := cfg.GridSize * cfg.GridSize; required > cells {
		return fmt.Errorf("%w: %d distinct cells required, grid has %d", ErrConfiguration, required, cells)
	}

	seen := map[Position]bool{}
	for _, dp := range deposits {
		if seen[dp.Pos] {
			return fmt.Errorf("%w: deposit points coincide at %v", ErrConfiguration, dp.Pos)
		}
		seen[dp.Pos] = true
	}
	if !cfg.RandomStart {
		if !cfg.inBounds(cfg.Start) {
			return fmt.Errorf("%w: start %v outside %dx%d grid", ErrConfiguration, cfg.Start, cfg.GridSize, cfg.GridSize)
		}
		if seen[cfg.Start] {
			return fmt.Errorf("%w: start %v is a deposit point", ErrConfiguration, cfg.Start)
		}
		seen[cfg.Start] = true
	}

	if len(cfg.Spawns) == 0 {
		return nil
	}
	if len(cfg.Spawns) != cfg.NumItems {
		return fmt.Errorf("%w: %d spawns for %d items", ErrConfiguration, len(cfg.Spawns), cfg.NumItems)
	}
	if cfg.RandomStart {
		return fmt.Errorf("%w: fixed spawns cannot be combined with a random start", ErrConfiguration)
	}
	for _, pos := range cfg.Spawns {
		if !cfg.inBounds(pos) {
			return fmt.Errorf("%w: spawn %v outside %dx%d grid", ErrConfiguration, pos, cfg.GridSize, cfg.GridSize)
		}
		if seen[pos] {
			return fmt.Errorf("%w: spawn %v coincides with the start, a deposit or another spawn", ErrConfiguration, pos)
		}
		seen[pos] = true
	}
	return nil
}
