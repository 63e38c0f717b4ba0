package root_view

import (
	"context"
	"html/template"
	"time"

	"wastegrid/grid_world"
	"wastegrid/server/cell_views"
	"wastegrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// The window within which ele-updates for the same element are coalesced.
const batchRate = time.Millisecond * 20

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the grid and status views over the snapshot stream.
func NewRootView(
	ctx context.Context,
	snapshots <-chan grid_world.Snapshot,
) (*RootView, error) {
	views, err := fastview.NewViewBuilder[grid_world.Snapshot, cell_views.Board]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.Convert).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewGridView(done, boards)
		}).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewStatusView(done, boards)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		views:   views,
		updates: fanIn(ctx.Done(), views),
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// It also sets up the func-map that the child components depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"add":  func(i, j int) int { return i + j },
			"sub":  func(i, j int) int { return i - j },
			"mult": func(i, j int) int { return i * j },
			"div":  func(i, j int) int { return i / j },
		})

	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			err = parseErr
			return
		}
		viewTemplates = append(viewTemplates, tname)
	}

	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	// The main template bootstraps the rest: sets up the client websocket and applies
	// the pushed ele-updates to the views.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<title>wastegrid</title>
			<link rel="icon" href="data:,">
			<script>
				const ws = new WebSocket("ws://" + window.location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};

				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (!ele) {
							continue
						}
						for (const op of update.Ops) {
							if (op.Key === "` + fastview.TEXT_CONTENT + `") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}
			</script>
		</head>
		<body style="display: flex;">
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single, batched channel.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		batchRate)
}

// batchify collects updates for @rate before sending them, over-writing previously
// received values for the same ele-id, so that only the latest value of each element
// is sent. A pending batch is flushed on the next tick even if no further input
// arrives, and once more when the source closes.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		order := []string{}
		flush := func() bool {
			if len(order) == 0 {
				return true
			}
			batch := make([]fastview.EleUpdate, 0, len(order))
			for _, id := range order {
				batch = append(batch, data[id])
			}
			select {
			case output <- batch:
				data = map[string]fastview.EleUpdate{}
				order = order[:0]
				return true
			case <-done:
				return false
			}
		}

		ticker := channerics.NewTicker(done, rate)
		input := channerics.OrDone(done, source)
		for {
			select {
			case updates, ok := <-input:
				if !ok {
					flush()
					return
				}
				// Intentionally overwrites pre-existing values for an ele-id within this batch's time frame.
				for _, update := range updates {
					if _, seen := data[update.EleId]; !seen {
						order = append(order, update.EleId)
					}
					data[update.EleId] = update
				}
			case <-ticker:
				if !flush() {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return output
}
