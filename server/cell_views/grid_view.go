package cell_views

import (
	"fmt"
	"html/template"

	"wastegrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// The size of each cell in pixels.
const cellDim = 80

// GridView draws the grid as an svg of labelled cells.
type GridView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewGridView(
	done <-chan struct{},
	boards <-chan Board,
) (gv *GridView) {
	// Ids must not be hyphenated, which interferes with html/template's `template` directive.
	gv = &GridView{id: "gridview"}
	gv.updates = channerics.Convert(done, boards, gv.onUpdate)
	return
}

func (gv *GridView) Updates() <-chan []fastview.EleUpdate {
	return gv.updates
}

func cellId(x, y int) string  { return fmt.Sprintf("%d-%d-cell", x, y) }
func glyphId(x, y int) string { return fmt.Sprintf("%d-%d-glyph", x, y) }

// Returns the updates for every cell; a batch always describes the full grid.
func (gv *GridView) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, col := range board.Cells {
		for _, cell := range col {
			ops = append(ops,
				fastview.EleUpdate{
					EleId: cellId(cell.X, cell.Y),
					Ops: []fastview.Op{
						{Key: "fill", Value: cell.Fill},
						{Key: "stroke", Value: cell.Stroke},
					},
				},
				fastview.EleUpdate{
					EleId: glyphId(cell.X, cell.Y),
					Ops: []fastview.Op{
						{Key: fastview.TEXT_CONTENT, Value: cell.Glyph},
					},
				})
		}
	}
	return
}

// Parse adds the grid's svg definition to @t. It relies on the parent's
// add, mult and div funcs.
func (gv *GridView) Parse(
	t *template.Template,
) (name string, err error) {
	name = gv.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div style="padding:20px;">
			{{ $cells := .Cells }}
			{{ $n := len $cells }}
			{{ $cell_dim := ` + fmt.Sprintf("%d", cellDim) + ` }}
			{{ $half := div $cell_dim 2 }}
			{{ $size := mult $cell_dim $n }}
			<svg id="` + gv.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ add $size 2 }}px"
				height="{{ add $size 2 }}px"
				style="shape-rendering: crispEdges;">
				{{ range $col := $cells }}
					{{ range $cell := $col }}
					<g>
						<rect id="{{$cell.X}}-{{$cell.Y}}-cell"
							x="{{ add (mult $cell.X $cell_dim) 1 }}"
							y="{{ add (mult $cell.Y $cell_dim) 1 }}"
							width="{{ $cell_dim }}"
							height="{{ $cell_dim }}"
							fill="{{ $cell.Fill }}"
							stroke="{{ $cell.Stroke }}"
							stroke-width="2"/>
						<text id="{{$cell.X}}-{{$cell.Y}}-glyph"
							x="{{ add (mult $cell.X $cell_dim) $half }}"
							y="{{ add (mult $cell.Y $cell_dim) $half }}"
							font-size="28" font-family="monospace"
							dominant-baseline="central" text-anchor="middle"
							>{{ $cell.Glyph }}</text>
					</g>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
