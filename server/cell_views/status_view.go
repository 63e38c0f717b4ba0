package cell_views

import (
	"html/template"

	"wastegrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// StatusView is a text panel of the episode's progress.
type StatusView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewStatusView(
	done <-chan struct{},
	boards <-chan Board,
) (sv *StatusView) {
	sv = &StatusView{id: "statusview"}
	sv.updates = channerics.Convert(done, boards, sv.onUpdate)
	return
}

func (sv *StatusView) Updates() <-chan []fastview.EleUpdate {
	return sv.updates
}

func (sv *StatusView) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, field := range board.Status {
		ops = append(ops, fastview.EleUpdate{
			EleId: field.Id,
			Ops: []fastview.Op{
				{Key: fastview.TEXT_CONTENT, Value: field.Value},
			},
		})
	}
	return
}

func (sv *StatusView) Parse(
	t *template.Template,
) (name string, err error) {
	name = sv.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<table id="` + sv.id + `" style="font-family: monospace; padding: 20px;">
			{{ range $field := .Status }}
			<tr>
				<td>{{ $field.Label }}</td>
				<td id="{{ $field.Id }}">{{ $field.Value }}</td>
			</tr>
			{{ end }}
		</table>
		{{ end }}`)
	return
}
