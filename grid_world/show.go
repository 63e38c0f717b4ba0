package grid_world

import (
	"fmt"

	"github.com/logrusorgru/aurora"
)

// ShowGrid prints the grid to the console, for visual reference.
func ShowGrid(snap Snapshot) {
	for _, row := range snap.Glyphs() {
		for _, glyph := range row {
			fmt.Print(colorize(glyph), " ")
		}
		fmt.Println("")
	}
}

func colorize(glyph rune) aurora.Value {
	switch glyph {
	case ACTOR, CARRIER:
		return aurora.Blue(string(glyph))
	case WASTE:
		return aurora.Yellow(string(glyph))
	case BIN:
		return aurora.Green(string(glyph))
	default:
		return aurora.White(string(glyph))
	}
}

// ShowStatus prints a one line summary of the episode.
func ShowStatus(snap Snapshot) {
	fmt.Printf("step %d/%d  action %s  reward %.2f  carrying %t  delivered %d  terminated %t  truncated %t\n",
		snap.Steps, snap.MaxSteps, snap.LastAction, snap.Reward,
		snap.Actor.Carrying, snap.Delivered, snap.Terminated, snap.Truncated)
}
