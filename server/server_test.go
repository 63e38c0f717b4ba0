package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wastegrid/grid_world"
	"wastegrid/server/fastview"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
	. "github.com/smartystreets/goconvey/convey"
)

// The contract observers of /snapshot rely on.
const snapshotSchema = `{
	"type": "object",
	"required": ["variant", "gridSize", "actor", "items", "deposits", "target", "steps", "maxSteps", "terminated", "truncated"],
	"properties": {
		"variant": { "enum": ["collection", "locate", "sorting"] },
		"gridSize": { "type": "integer", "minimum": 1 },
		"actor": {
			"type": "object",
			"required": ["pos", "carrying", "carriedKind"],
			"properties": {
				"pos": { "$ref": "#/$defs/position" },
				"carrying": { "type": "boolean" }
			}
		},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["pos", "kind", "active"],
				"properties": {
					"pos": { "$ref": "#/$defs/position" },
					"active": { "type": "boolean" }
				}
			}
		},
		"deposits": { "type": "array" },
		"target": { "$ref": "#/$defs/position" },
		"steps": { "type": "integer", "minimum": 0 },
		"maxSteps": { "type": "integer", "minimum": 1 },
		"reward": { "type": "number" }
	},
	"$defs": {
		"position": {
			"type": "object",
			"required": ["x", "y"],
			"properties": {
				"x": { "type": "integer", "minimum": 0 },
				"y": { "type": "integer", "minimum": 0 }
			}
		}
	}
}`

func newEnv() *grid_world.Env {
	env, err := grid_world.NewEnv(grid_world.DefaultConfig(grid_world.COLLECTION), nil)
	So(err, ShouldBeNil)
	return env
}

func TestServer(t *testing.T) {
	Convey("Given a server observing an env", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		Reset(cancel)

		env := newEnv()
		snapshots := make(chan grid_world.Snapshot)
		srv, err := NewServer(ctx, ":0", env.Snapshot(), snapshots)
		So(err, ShouldBeNil)

		ts := httptest.NewServer(srv.Handler())
		Reset(ts.Close)

		Convey("The index page renders the current grid", func() {
			resp, err := http.Get(ts.URL + "/")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			body, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			page := string(body)
			So(page, ShouldContainSubstring, `id="gridview"`)
			So(page, ShouldContainSubstring, `id="statusview"`)
			So(page, ShouldContainSubstring, `id="4-4-cell"`)
			So(page, ShouldContainSubstring, `id="status-step"`)
		})

		Convey("The snapshot endpoint serves the latest snapshot", func() {
			env.Step(grid_world.MOVE_RIGHT)
			snapshots <- env.Snapshot()
			// The views consume snapshots asynchronously.
			So(waitFor(func() bool { return srv.Latest().Steps == 1 }), ShouldBeTrue)

			resp, err := http.Get(ts.URL + "/snapshot")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var doc interface{}
			So(json.NewDecoder(resp.Body).Decode(&doc), ShouldBeNil)
			schema := jsonschema.MustCompileString("snapshot.schema.json", snapshotSchema)
			So(schema.Validate(doc), ShouldBeNil)

			var snap grid_world.Snapshot
			raw, _ := json.Marshal(doc)
			So(json.Unmarshal(raw, &snap), ShouldBeNil)
			So(snap.Actor.Pos, ShouldResemble, grid_world.Position{X: 1, Y: 0})
			So(snap.LastAction, ShouldEqual, "right")
		})

		Convey("Other methods are not routed", func() {
			resp, err := http.Post(ts.URL+"/snapshot", "application/json", strings.NewReader("{}"))
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Websocket clients receive view updates", func() {
			url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			So(waitFor(func() bool { return srv.hub.size() == 1 }), ShouldBeTrue)

			// Keep stepping until a batch arrives; early batches may be dropped by rate limiting.
			received := make(chan []fastview.EleUpdate, 1)
			go func() {
				var updates []fastview.EleUpdate
				if err := conn.ReadJSON(&updates); err == nil {
					received <- updates
				}
			}()

			var updates []fastview.EleUpdate
			deadline := time.After(5 * time.Second)
			for updates == nil {
				env.Step(grid_world.MOVE_DOWN)
				select {
				case snapshots <- env.Snapshot():
				case updates = <-received:
				case <-deadline:
					t.Fatal("no updates received")
				}
			}

			ids := map[string]bool{}
			for _, update := range updates {
				ids[update.EleId] = true
			}
			So(ids["0-0-glyph"], ShouldBeTrue)
			So(ids["status-step"], ShouldBeTrue)
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
