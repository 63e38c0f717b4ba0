package main

import (
	"os"
	"path/filepath"
	"testing"

	"wastegrid/grid_world"
	"wastegrid/recorder"
	"wastegrid/reinforcement"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `
kind: wastegrid
def:
  environment:
    variant: collection
    grid_size: 5
    num_items: 2
    max_steps: 80
    random_start: true
    seed: 5
  policy:
    name: oracle
    epsilon: 0.05
  episodes: 12
  workers: 3
  deadline:
    duration: 30s
`

func TestCommands(t *testing.T) {
	Convey("Given a run definition on disk", t, func() {
		dir := t.TempDir()
		configPath = filepath.Join(dir, "config.yaml")
		So(os.WriteFile(configPath, []byte(testConfig), 0o644), ShouldBeNil)

		nworkers, logEvery = 0, 0
		recordDir = filepath.Join(dir, "episodes")
		plotPath = filepath.Join(dir, "rewards.html")

		Convey("run records every episode and plots their rewards", func() {
			So(runEpisodes(nil, nil), ShouldBeNil)
			So(nworkers, ShouldEqual, 3)

			files, err := recorder.Files(recordDir)
			So(err, ShouldBeNil)
			So(files, ShouldHaveLength, 1)
			records, err := recorder.ReadAll(files[0])
			So(err, ShouldBeNil)
			So(recorder.Returns(records), ShouldHaveLength, 12)

			info, err := os.Stat(plotPath)
			So(err, ShouldBeNil)
			So(info.Size(), ShouldBeGreaterThan, 0)

			Convey("plot rebuilds the chart from the recordings", func() {
				So(os.Remove(plotPath), ShouldBeNil)
				So(plotRecordings(nil, nil), ShouldBeNil)
				_, err := os.Stat(plotPath)
				So(err, ShouldBeNil)
			})
		})

		Convey("The env and policy follow the definition", func() {
			cfg, err := reinforcement.FromYaml(configPath)
			So(err, ShouldBeNil)
			env, policy, rng, err := newEnvAndPolicy(cfg)
			So(err, ShouldBeNil)
			So(policy, ShouldNotBeNil)
			So(rng, ShouldNotBeNil)
			So(env.Variant(), ShouldEqual, grid_world.COLLECTION)
			So(env.Items(), ShouldHaveLength, 2)
			So(env.Observe(), ShouldHaveLength, grid_world.Len(env.Config()))
		})

		Convey("show plays the configured policy to completion", func() {
			playSteps, playDelay = 80, 0
			So(showEnv(nil, nil), ShouldBeNil)
		})

		Convey("A missing definition fails every command", func() {
			configPath = filepath.Join(dir, "absent.yaml")
			So(runEpisodes(nil, nil), ShouldNotBeNil)
			So(showEnv(nil, nil), ShouldNotBeNil)
		})
	})
}
