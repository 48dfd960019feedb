package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/kaiitheguy/stock-fantasy-api/internal/store"
)

const (
	chartWidth  = "1200px"
	chartHeight = "620px"
)

// RenderStandingsChart writes an HTML line chart of each agent's total
// PnL across the saved standings snapshots, oldest first.
func RenderStandingsChart(w io.Writer, snapshots []store.Snapshot) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "League Standings",
			Subtitle: "total PnL per agent over time",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll"}),
	)

	xAxis := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		xAxis = append(xAxis, snap.TakenAt.UTC().Format(time.DateOnly))
	}
	line.SetXAxis(xAxis)

	// One series per agent, aligned over the snapshot axis. Agents that
	// joined late get zeroes for the rounds they missed.
	agentSet := make(map[int]struct{})
	for _, snap := range snapshots {
		for _, e := range snap.Entries {
			agentSet[e.AgentID] = struct{}{}
		}
	}
	ids := make([]int, 0, len(agentSet))
	for id := range agentSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		points := make([]opts.LineData, 0, len(snapshots))
		for _, snap := range snapshots {
			value := 0.0
			for _, e := range snap.Entries {
				if e.AgentID == id {
					value, _ = e.TotalPnL.Float64()
					break
				}
			}
			points = append(points, opts.LineData{Value: value})
		}
		line.AddSeries(fmt.Sprintf("agent %d", id), points,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	return line.Render(w)
}
