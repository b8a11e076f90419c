package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/khrees2412/applytrack/internal/app"
	"github.com/khrees2412/applytrack/internal/gateway"
	"github.com/khrees2412/applytrack/internal/stats"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View application statistics and insights",
	Long:  "Display status counts, success rate, monthly activity and average time spent per status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}
		cvs, err := load(cmd.Context(), a.CVs)
		if err != nil {
			return err
		}

		renderDashboard(stats.Build(apps, cvs, time.Now()))

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchDashboard(cmd, a)
		}
		return nil
	},
}

// watchDashboard redraws whenever either list changes until interrupted
func watchDashboard(cmd *cobra.Command, a *app.App) error {
	changed := make(chan struct{}, 1)
	poke := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	stopApps := a.Applications.Watch(func(gateway.State[models.Application]) { poke() })
	defer stopApps()
	stopCVs := a.CVs.Watch(func(gateway.State[models.CV]) { poke() })
	defer stopCVs()

	fmt.Println(labelStyle.Render("Watching for changes, Ctrl+C to stop"))
	var lastApps, lastCVs uint64 = a.Applications.State().Version, a.CVs.State().Version
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-changed:
		}

		appState, cvState := a.Applications.State(), a.CVs.State()
		if appState.Err != nil {
			return appState.Err
		}
		if cvState.Err != nil {
			return cvState.Err
		}
		if appState.Version == lastApps && cvState.Version == lastCVs {
			continue
		}
		lastApps, lastCVs = appState.Version, cvState.Version

		fmt.Print("\033[H\033[2J")
		renderDashboard(stats.Build(appState.Items, cvState.Items, time.Now()))
	}
}

func renderDashboard(d stats.Dashboard) {
	fmt.Println(titleStyle.Render("Application Statistics"))

	// Overall stats
	fmt.Printf("%s\n", labelStyle.Render("Overview"))
	fmt.Printf("  Total Applications: %d\n", d.Total)
	fmt.Printf("  CVs: %d\n", d.CVCount)
	fmt.Printf("  Success Rate: %.1f%%\n", d.SuccessRate)

	// Status breakdown
	fmt.Printf("\n%s\n", labelStyle.Render("Status Breakdown"))
	for _, s := range models.Statuses {
		count := d.StatusCounts[s]
		percentage := 0.0
		if d.Total > 0 {
			percentage = float64(count) / float64(d.Total) * 100
		}
		fmt.Printf("  %-10s %3d (%.1f%%)\n", statusStyle(s).Render(string(s)), count, percentage)
	}

	// Monthly activity
	fmt.Printf("\n%s\n", labelStyle.Render("Activity"))
	peak := 0
	for _, b := range d.Activity {
		peak = max(peak, b.Count)
	}
	for _, b := range d.Activity {
		bar := 0
		if peak > 0 {
			bar = b.Count * 30 / peak
		}
		fmt.Printf("  %s %s %d\n", b.Month, strings.Repeat("█", bar), b.Count)
	}

	// Time in status
	fmt.Printf("\n%s\n", labelStyle.Render("Average Days in Status"))
	for _, s := range models.Statuses {
		fmt.Printf("  %-10s %d\n", string(s), d.AverageDwell[s])
	}
}

func init() {
	statsCmd.Flags().BoolP("watch", "w", false, "Keep the dashboard open and redraw on changes")
	rootCmd.AddCommand(statsCmd)
}
