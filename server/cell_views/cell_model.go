// cell_views contains views derived from the Board view-model.
package cell_views

import (
	"fmt"

	"wastegrid/grid_world"
)

// Cell is a grid cell reduced to what the svg needs. Cells are indexed [x][y],
// and since grid Y already grows downward, Y is used directly as the svg row.
// As a rule of thumb, Cell fields should be immediately usable as view parameters.
type Cell struct {
	X, Y   int
	Fill   string
	Stroke string
	Glyph  string
}

// StatusField is one labelled value of the status panel.
type StatusField struct {
	Id    string
	Label string
	Value string
}

// Board is the view-model of a single snapshot: the cells and the status panel.
type Board struct {
	Cells  [][]Cell
	Status []StatusField
}

const (
	EMPTY_FILL    = "lightgray"
	ACTOR_FILL    = "lightblue"
	CARRIER_FILL  = "steelblue"
	TARGET_STROKE = "red"
	CELL_STROKE   = "black"
)

// Convert transforms a snapshot into the Board view-model.
func Convert(snap grid_world.Snapshot) Board {
	glyphs := snap.Glyphs()
	cells := make([][]Cell, snap.GridSize)
	for x := range cells {
		cells[x] = make([]Cell, snap.GridSize)
		for y := range cells[x] {
			cells[x][y] = Cell{
				X:      x,
				Y:      y,
				Fill:   EMPTY_FILL,
				Stroke: CELL_STROKE,
				Glyph:  string(glyphs[y][x]),
			}
		}
	}

	// Later layers overwrite earlier ones, in the same order as the glyphs.
	for _, dp := range snap.Deposits {
		cells[dp.Pos.X][dp.Pos.Y].Fill = getDepositFill(dp.Kind)
	}
	for _, item := range snap.Items {
		if item.Active {
			cells[item.Pos.X][item.Pos.Y].Fill = getItemFill(item.Kind)
		}
	}
	actor := &cells[snap.Actor.Pos.X][snap.Actor.Pos.Y]
	actor.Fill = ACTOR_FILL
	if snap.Actor.Carrying {
		actor.Fill = CARRIER_FILL
	}
	if !snap.Terminated {
		cells[snap.Target.X][snap.Target.Y].Stroke = TARGET_STROKE
	}

	return Board{
		Cells:  cells,
		Status: getStatus(snap),
	}
}

func getDepositFill(kind grid_world.ItemKind) (fill string) {
	switch kind {
	case grid_world.RECYCLABLE:
		fill = "lightgreen"
	case grid_world.NON_RECYCLABLE:
		fill = "lightsalmon"
	default:
		fill = "khaki"
	}
	return
}

func getItemFill(kind grid_world.ItemKind) (fill string) {
	switch kind {
	case grid_world.RECYCLABLE:
		fill = "seagreen"
	case grid_world.NON_RECYCLABLE:
		fill = "indianred"
	default:
		fill = "sienna"
	}
	return
}

func getStatus(snap grid_world.Snapshot) []StatusField {
	carrying := "nothing"
	if snap.Actor.Carrying {
		carrying = snap.Actor.CarriedKind.String()
		if snap.Actor.CarriedKind == grid_world.NONE {
			carrying = "waste"
		}
	}
	state := "running"
	switch {
	case snap.Terminated:
		state = "terminated"
	case snap.Truncated:
		state = "truncated"
	}
	lastAction := snap.LastAction
	if lastAction == "" {
		lastAction = "-"
	}

	return []StatusField{
		{Id: "status-variant", Label: "variant", Value: string(snap.Variant)},
		{Id: "status-step", Label: "step", Value: fmt.Sprintf("%d / %d", snap.Steps, snap.MaxSteps)},
		{Id: "status-action", Label: "last action", Value: lastAction},
		{Id: "status-reward", Label: "reward", Value: fmt.Sprintf("%.2f", snap.Reward)},
		{Id: "status-carrying", Label: "carrying", Value: carrying},
		{Id: "status-delivered", Label: "delivered", Value: fmt.Sprintf("%d / %d", snap.Delivered, len(snap.Items))},
		{Id: "status-state", Label: "episode", Value: state},
	}
}
