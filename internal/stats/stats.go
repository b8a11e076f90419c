// Package stats derives read-only dashboard figures from application and CV lists.
// Every function here is pure: callers recompute when their lists change.
package stats

import (
	"math"
	"time"

	"github.com/khrees2412/applytrack/pkg/models"
)

// MonthLayout keys the activity histogram
const MonthLayout = "2006-01"

// ActivityMonths is the length of the trailing histogram
const ActivityMonths = 6

// MonthBucket is one calendar month of the activity histogram
type MonthBucket struct {
	Month string
	Count int
}

// Dashboard is the full set of derived figures
type Dashboard struct {
	Total        int
	CVCount      int
	StatusCounts map[models.Status]int
	SuccessRate  float64
	Activity     []MonthBucket
	AverageDwell map[models.Status]int
}

// Build computes every figure for the given lists at time now
func Build(apps []models.Application, cvs []models.CV, now time.Time) Dashboard {
	return Dashboard{
		Total:        len(apps),
		CVCount:      len(cvs),
		StatusCounts: StatusCounts(apps),
		SuccessRate:  SuccessRate(apps),
		Activity:     MonthlyActivity(apps, now),
		AverageDwell: AverageDwell(apps, now),
	}
}

// StatusCounts counts applications per status. All five statuses are present;
// unknown status values are ignored.
func StatusCounts(apps []models.Application) map[models.Status]int {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = 0
	}
	for _, app := range apps {
		if _, ok := counts[app.Status]; ok {
			counts[app.Status]++
		}
	}
	return counts
}

// SuccessRate is the share of applications at Interview or Offer, as a
// percentage with one decimal. It is 0 for an empty list.
func SuccessRate(apps []models.Application) float64 {
	if len(apps) == 0 {
		return 0
	}
	counts := StatusCounts(apps)
	rate := float64(counts[models.StatusInterview]+counts[models.StatusOffer]) / float64(len(apps)) * 100
	return math.Round(rate*10) / 10
}

// MonthlyActivity buckets applications into the six calendar months ending
// with now's month, oldest first. An application is placed by its date,
// falling back to its creation time; applications with neither are left out.
func MonthlyActivity(apps []models.Application, now time.Time) []MonthBucket {
	loc := now.Location()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	buckets := make([]MonthBucket, ActivityMonths)
	index := make(map[string]int, ActivityMonths)
	for i := 0; i < ActivityMonths; i++ {
		key := first.AddDate(0, i-(ActivityMonths-1), 0).Format(MonthLayout)
		buckets[i] = MonthBucket{Month: key}
		index[key] = i
	}

	for _, app := range apps {
		at, ok := activityTime(app, loc)
		if !ok {
			continue
		}
		if i, ok := index[at.Format(MonthLayout)]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

func activityTime(app models.Application, loc *time.Location) (time.Time, bool) {
	if app.Date != "" {
		if t, err := time.ParseInLocation(models.DateLayout, app.Date, loc); err == nil {
			return t, true
		}
	}
	if app.CreatedAt != nil {
		return app.CreatedAt.In(loc), true
	}
	return time.Time{}, false
}

// Dwell attributes elapsed days to statuses along one application's history.
// Each adjacent pair of entries credits the earlier entry's status; the span
// from the last entry to now credits the current status. A span that runs
// backwards, as after a history date in the future, counts as zero days.
// It returns nil for histories shorter than two entries or with an
// unreadable date.
func Dwell(app models.Application, now time.Time) map[models.Status][]float64 {
	if len(app.History) < 2 {
		return nil
	}
	loc := now.Location()

	dates := make([]time.Time, len(app.History))
	for i, h := range app.History {
		t, err := time.ParseInLocation(models.DateLayout, h.Date, loc)
		if err != nil {
			return nil
		}
		dates[i] = t
	}

	out := make(map[models.Status][]float64)
	for i := 0; i+1 < len(dates); i++ {
		s := app.History[i].Status
		out[s] = append(out[s], days(dates[i], dates[i+1]))
	}
	last := dates[len(dates)-1]
	out[app.Status] = append(out[app.Status], days(last, now))
	return out
}

// AverageDwell is the mean number of whole days spent per status. Statuses
// with no samples report 0.
func AverageDwell(apps []models.Application, now time.Time) map[models.Status]int {
	sums := make(map[models.Status]float64)
	samples := make(map[models.Status]int)
	for _, app := range apps {
		for s, spans := range Dwell(app, now) {
			for _, d := range spans {
				sums[s] += d
				samples[s]++
			}
		}
	}

	avg := make(map[models.Status]int, len(models.Statuses))
	for _, s := range models.Statuses {
		if samples[s] == 0 {
			avg[s] = 0
			continue
		}
		avg[s] = int(math.Round(sums[s] / float64(samples[s])))
	}
	return avg
}

func days(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	return to.Sub(from).Hours() / 24
}
