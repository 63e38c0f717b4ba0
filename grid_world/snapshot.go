package grid_world

// Snapshot is a deep copy of the public simulation state, the only thing
// observers (views, recorders) are given. Mutating it has no effect on the Env.
type Snapshot struct {
	Variant    Variant        `json:"variant"`
	GridSize   int            `json:"gridSize"`
	Actor      Actor          `json:"actor"`
	Items      []Item         `json:"items"`
	Deposits   []DepositPoint `json:"deposits"`
	Target     Position       `json:"target"`
	Steps      int            `json:"steps"`
	MaxSteps   int            `json:"maxSteps"`
	Delivered  int            `json:"delivered"`
	LastAction string         `json:"lastAction"`
	Reward     float64        `json:"reward"`
	Terminated bool           `json:"terminated"`
	Truncated  bool           `json:"truncated"`
}

// Snapshot copies the current state.
func (env *Env) Snapshot() Snapshot {
	lastAction := ""
	if env.lastAction != nil {
		lastAction = env.lastAction.String()
	}
	return Snapshot{
		Variant:    env.cfg.Variant,
		GridSize:   env.cfg.GridSize,
		Actor:      env.actor,
		Items:      env.Items(),
		Deposits:   env.Deposits(),
		Target:     env.Target(),
		Steps:      env.steps,
		MaxSteps:   env.cfg.MaxSteps,
		Delivered:  env.delivered,
		LastAction: lastAction,
		Reward:     env.lastReward,
		Terminated: env.terminated,
		Truncated:  env.truncated,
	}
}

// Cell glyphs for console display.
const (
	EMPTY   = '.'
	ACTOR   = 'A'
	WASTE   = 'W'
	BIN     = 'B'
	CARRIER = 'C'
)

// Glyphs lays the snapshot out as rows of runes, indexed [y][x]. The actor is
// drawn over anything beneath it, and as CARRIER while carrying.
func (snap *Snapshot) Glyphs() [][]rune {
	grid := make([][]rune, snap.GridSize)
	for y := range grid {
		grid[y] = make([]rune, snap.GridSize)
		for x := range grid[y] {
			grid[y][x] = EMPTY
		}
	}
	for _, dp := range snap.Deposits {
		grid[dp.Pos.Y][dp.Pos.X] = BIN
	}
	for _, item := range snap.Items {
		if item.Active {
			grid[item.Pos.Y][item.Pos.X] = WASTE
		}
	}
	actor := ACTOR
	if snap.Actor.Carrying {
		actor = CARRIER
	}
	grid[snap.Actor.Pos.Y][snap.Actor.Pos.X] = actor
	return grid
}
