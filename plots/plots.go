package plots

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// The episode return series is smoothed over this many episodes.
const SMOOTHING_WINDOW = 10

var ErrNoData = errors.New("no episode returns to plot")

// CumulativeReward renders an html page of two line charts: the running sum of
// the episode returns, and each return with its moving average.
func CumulativeReward(w io.Writer, returns []float64) error {
	if len(returns) == 0 {
		return ErrNoData
	}

	episodes := make([]string, 0, len(returns))
	for i := range returns {
		episodes = append(episodes, fmt.Sprintf("%d", i+1))
	}

	cumulative := charts.NewLine()
	cumulative.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Cumulative reward",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reward"}),
	)
	cumulative.SetXAxis(episodes).
		AddSeries("cumulative reward", lineData(runningSum(returns)))

	perEpisode := charts.NewLine()
	perEpisode.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Episode return",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "return"}),
	)
	perEpisode.SetXAxis(episodes).
		AddSeries("return", lineData(returns)).
		AddSeries(fmt.Sprintf("mean of last %d", SMOOTHING_WINDOW), lineData(movingAverage(returns, SMOOTHING_WINDOW)))

	page := components.NewPage()
	page.PageTitle = "wastegrid rewards"
	page.AddCharts(
		cumulative,
		perEpisode,
	)
	return page.Render(w)
}

// WriteFile renders the reward page to @path, creating its directory.
func WriteFile(path string, returns []float64) (err error) {
	if len(returns) == 0 {
		return ErrNoData
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return CumulativeReward(f, returns)
}

func lineData(vals []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(vals))
	for _, val := range vals {
		items = append(items, opts.LineData{Value: val})
	}
	return items
}

func runningSum(vals []float64) []float64 {
	sums := make([]float64, len(vals))
	sum := 0.0
	for i, val := range vals {
		sum += val
		sums[i] = sum
	}
	return sums
}

// movingAverage averages each value with up to @window-1 predecessors.
func movingAverage(vals []float64, window int) []float64 {
	avgs := make([]float64, len(vals))
	sum := 0.0
	for i, val := range vals {
		sum += val
		if i >= window {
			sum -= vals[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		avgs[i] = sum / float64(n)
	}
	return avgs
}
