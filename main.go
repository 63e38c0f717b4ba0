/*
Wastegrid is a grid world for reinforcement learning agents: an actor moves on an
N×N grid, picks up waste items and drops them at fixed bins, collecting shaped
rewards along the way. The simulation itself lives in grid_world; this command
drives it with simple policies as parallel batch rollouts (run), as a live
browser view of a single env (watch), or on the console (show). Recorded
rollouts can be plotted afterward (plot).
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"time"

	"wastegrid/grid_world"
	"wastegrid/plots"
	"wastegrid/recorder"
	"wastegrid/reinforcement"
	"wastegrid/server"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string

	nworkers  int
	recordDir string
	plotPath  string
	logEvery  int

	addr string
	tick time.Duration

	playSteps int
	playDelay time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "wastegrid",
		Short:        "Wastegrid simulates a waste collection grid world for reinforcement learning agents.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "path to the run definition")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Generate episodes in parallel and summarize their rewards",
		RunE:  runEpisodes,
	}
	runCmd.Flags().IntVar(&nworkers, "workers", 0, "number of rollout workers (default: config, else the number of cpus)")
	runCmd.Flags().StringVar(&recordDir, "record", "", "directory to record trajectories to")
	runCmd.Flags().StringVar(&plotPath, "plot", "", "html file to plot the cumulative reward to")
	runCmd.Flags().IntVar(&logEvery, "log-every", 1, "log every nth episode's summary")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Step a single env and serve a live view of it",
		RunE:  watchEnv,
	}
	watchCmd.Flags().StringVar(&addr, "addr", ":8080", "the observer's listen address")
	watchCmd.Flags().DurationVar(&tick, "tick", 500*time.Millisecond, "time between steps")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Reset an env and print it to the console",
		RunE:  showEnv,
	}
	showCmd.Flags().IntVar(&playSteps, "steps", 0, "number of policy steps to play and print")
	showCmd.Flags().DurationVar(&playDelay, "delay", 200*time.Millisecond, "time between printed steps")

	for _, envFile := range []string{
		".env",
		"../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot the cumulative reward of previously recorded trajectories",
		RunE:  plotRecordings,
	}
	plotCmd.Flags().StringVar(&recordDir, "record", "./episodes", "directory of recorded trajectories")
	plotCmd.Flags().StringVar(&plotPath, "plot", "./rewards.html", "html file to write")

	rootCmd.AddCommand(runCmd, watchCmd, showCmd, plotCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appContext is cancelled on interrupt.
func appContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runEpisodes(cmd *cobra.Command, args []string) (err error) {
	var cfg *reinforcement.RunConfig
	if cfg, err = reinforcement.FromYaml(configPath); err != nil {
		return
	}
	if nworkers <= 0 {
		nworkers = cfg.Workers
	}
	if nworkers <= 0 {
		nworkers = runtime.NumCPU()
	}

	appCtx, appCancel := appContext()
	defer appCancel()

	runCtx, runCancel, err := cfg.WithRunDeadline(appCtx)
	if err != nil {
		return
	}
	defer runCancel()

	episodes, err := reinforcement.Run(runCtx, cfg, nworkers, reportProgress)
	if err != nil {
		return
	}

	visitors := []func(*reinforcement.EpisodeResult) error{
		func(res *reinforcement.EpisodeResult) error {
			if logEvery > 0 && res.Index%logEvery == 0 {
				reinforcement.LogEpisode(res)
			}
			return nil
		},
	}
	if recordDir != "" {
		rec := recorder.NewEpisodeRecorder(recordDir)
		defer func() {
			if closeErr := rec.Close(); err == nil {
				err = closeErr
			}
			log.Printf("trajectories recorded to %s\n", rec.Path())
		}()
		visitors = append(visitors, rec.WriteEpisode)
	}

	stats := reinforcement.NewStats()
	start := time.Now()
	if err = reinforcement.Aggregate(runCtx, episodes, stats, visitors...); err != nil {
		// Reaching the deadline or an interrupt ends the run early, but normally.
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return
		}
		err = nil
	}

	fmt.Printf("episodes: %d  workers: %d  elapsed: %v\n", stats.Episodes(), nworkers, time.Since(start))
	fmt.Printf("mean return: %.2f  best return: %.2f  mean steps: %.1f\n", stats.MeanReturn(), stats.BestReturn(), stats.MeanSteps())
	fmt.Printf("success rate: %.1f%%  truncated: %d\n", 100*stats.SuccessRate(), stats.Truncations())

	if plotPath != "" && stats.Episodes() > 0 {
		if err = plots.WriteFile(plotPath, stats.Returns()); err != nil {
			return
		}
		log.Printf("reward plot written to %s\n", plotPath)
	}
	return
}

// plotRecordings replays the rewards of every recording in recordDir, oldest file first.
func plotRecordings(cmd *cobra.Command, args []string) error {
	files, err := recorder.Files(recordDir)
	if err != nil {
		return err
	}

	var returns []float64
	for _, path := range files {
		records, err := recorder.ReadAll(path)
		if err != nil {
			return err
		}
		returns = append(returns, recorder.Returns(records)...)
	}
	if err = plots.WriteFile(plotPath, returns); err != nil {
		return err
	}
	log.Printf("%d episodes from %d recordings plotted to %s\n", len(returns), len(files), plotPath)
	return nil
}

// reportProgress logs a milestone every 1000 episodes.
func reportProgress(ctx context.Context, episodeCount int) {
	if episodeCount%1000 == 0 {
		log.Printf("%d episodes completed\n", episodeCount)
	}
}

// newEnvAndPolicy builds the single env and policy used by watch and show.
func newEnvAndPolicy(cfg *reinforcement.RunConfig) (*grid_world.Env, reinforcement.Policy, *rand.Rand, error) {
	envCfg, err := cfg.EnvConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	env, err := grid_world.NewEnv(envCfg, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	policy, err := reinforcement.NewPolicy(cfg.Policy)
	if err != nil {
		return nil, nil, nil, err
	}
	return env, policy, rand.New(rand.NewSource(envCfg.Seed + reinforcement.POLICY_SEED_OFFSET)), nil
}

func watchEnv(cmd *cobra.Command, args []string) (err error) {
	var cfg *reinforcement.RunConfig
	if cfg, err = reinforcement.FromYaml(configPath); err != nil {
		return
	}
	env, policy, rng, err := newEnvAndPolicy(cfg)
	if err != nil {
		return
	}

	appCtx, appCancel := appContext()
	defer appCancel()

	// The initial snapshot must be taken before Watch takes ownership of the env.
	initial := env.Snapshot()
	snapshots := reinforcement.Watch(appCtx, env, policy, rng, tick, reinforcement.LogEpisode)

	var srv *server.Server
	if srv, err = server.NewServer(appCtx, addr, initial, snapshots); err != nil {
		return
	}
	return srv.Serve(appCtx)
}

func showEnv(cmd *cobra.Command, args []string) (err error) {
	var cfg *reinforcement.RunConfig
	if cfg, err = reinforcement.FromYaml(configPath); err != nil {
		return
	}
	env, policy, rng, err := newEnvAndPolicy(cfg)
	if err != nil {
		return
	}

	envCfg := env.Config()
	low, high := grid_world.Bounds(envCfg)
	fmt.Printf("variant %s, %dx%d grid, %d items, %d max steps\n",
		envCfg.Variant, envCfg.GridSize, envCfg.GridSize, envCfg.NumItems, envCfg.MaxSteps)
	fmt.Printf("observation space: %d values in [%v, %v]\n", grid_world.Len(envCfg), low, high)

	grid_world.ShowGrid(env.Snapshot())
	fmt.Println("observation:", env.Observe())

	for i := 0; i < playSteps && !env.Done(); i++ {
		time.Sleep(playDelay)
		fmt.Println()
		env.Step(policy.Act(env, rng))
		snap := env.Snapshot()
		grid_world.ShowGrid(snap)
		grid_world.ShowStatus(snap)
	}
	return nil
}
