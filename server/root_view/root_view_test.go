package root_view

import (
	"context"
	"html/template"
	"strings"
	"testing"
	"time"

	"wastegrid/grid_world"
	"wastegrid/server/cell_views"
	"wastegrid/server/fastview"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBatchify(t *testing.T) {
	Convey("Given a stream of ele-updates", t, func() {
		done := make(chan struct{})
		defer close(done)
		source := make(chan []fastview.EleUpdate)

		update := func(id, val string) fastview.EleUpdate {
			return fastview.EleUpdate{EleId: id, Ops: []fastview.Op{{Key: fastview.TEXT_CONTENT, Value: val}}}
		}

		Convey("Updates to the same element within a window are coalesced", func() {
			batches := batchify(done, source, time.Hour)
			source <- []fastview.EleUpdate{update("a", "1"), update("b", "1")}
			source <- []fastview.EleUpdate{update("a", "2")}
			close(source)

			var got [][]fastview.EleUpdate
			for batch := range batches {
				got = append(got, batch)
			}
			So(got, ShouldResemble, [][]fastview.EleUpdate{{update("a", "2"), update("b", "1")}})
		})

		Convey("A pending batch is flushed without further input", func() {
			batches := batchify(done, source, 20*time.Millisecond)
			source <- []fastview.EleUpdate{update("c", "1")}
			select {
			case batch := <-batches:
				So(batch, ShouldResemble, []fastview.EleUpdate{update("c", "1")})
			case <-time.After(time.Second):
				So("no batch flushed", ShouldBeEmpty)
			}
		})

		Convey("The remainder is flushed when the source closes", func() {
			batches := batchify(done, source, time.Hour)
			source <- []fastview.EleUpdate{update("d", "1")}
			close(source)
			var got []fastview.EleUpdate
			for batch := range batches {
				got = append(got, batch...)
			}
			So(got, ShouldResemble, []fastview.EleUpdate{update("d", "1")})
		})
	})
}

func TestRootView(t *testing.T) {
	Convey("The root view renders every child view and streams their updates", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		env, err := grid_world.NewEnv(grid_world.DefaultConfig(grid_world.LOCATE), nil)
		So(err, ShouldBeNil)
		snapshots := make(chan grid_world.Snapshot, 1)
		rv, err := NewRootView(ctx, snapshots)
		So(err, ShouldBeNil)

		page := template.New("index.html")
		name, err := rv.Parse(page)
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "mainpage")

		var sb strings.Builder
		So(page.ExecuteTemplate(&sb, name, cell_views.Convert(env.Snapshot())), ShouldBeNil)
		So(sb.String(), ShouldContainSubstring, "new WebSocket")
		So(sb.String(), ShouldContainSubstring, `id="gridview"`)
		So(sb.String(), ShouldContainSubstring, `id="statusview"`)

		snapshots <- env.Snapshot()
		ids := map[string]bool{}
		for len(ids) == 0 || !ids["status-step"] || !ids["0-0-glyph"] {
			select {
			case batch := <-rv.Updates():
				for _, update := range batch {
					ids[update.EleId] = true
				}
			case <-time.After(2 * time.Second):
				t.Fatal("missing updates")
			}
		}
	})
}
