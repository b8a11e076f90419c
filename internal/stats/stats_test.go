package stats

import (
	"testing"
	"time"

	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func app(status models.Status, date string, history ...models.HistoryEntry) models.Application {
	return models.Application{Company: "Acme", Status: status, Date: date, History: history}
}

func entry(status models.Status, date string) models.HistoryEntry {
	return models.HistoryEntry{Status: status, Date: date}
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts([]models.Application{
		app(models.StatusDraft, ""),
		app(models.StatusApplied, ""),
		app(models.StatusApplied, ""),
		app("Ghosted", ""),
	})

	assert.Equal(t, map[models.Status]int{
		models.StatusDraft:     1,
		models.StatusApplied:   2,
		models.StatusInterview: 0,
		models.StatusOffer:     0,
		models.StatusRejected:  0,
	}, counts)
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name string
		apps []models.Application
		want float64
	}{
		{"empty", nil, 0},
		{"none successful", []models.Application{app(models.StatusApplied, "")}, 0},
		{"all successful", []models.Application{app(models.StatusOffer, ""), app(models.StatusInterview, "")}, 100},
		{"one in three", []models.Application{
			app(models.StatusInterview, ""),
			app(models.StatusRejected, ""),
			app(models.StatusDraft, ""),
		}, 33.3},
		{"two in three", []models.Application{
			app(models.StatusInterview, ""),
			app(models.StatusOffer, ""),
			app(models.StatusDraft, ""),
		}, 66.7},
		{"unknown status counts in total", []models.Application{app(models.StatusOffer, ""), app("Ghosted", "")}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuccessRate(tt.apps)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestMonthlyActivity(t *testing.T) {
	created := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	withCreated := app(models.StatusDraft, "")
	withCreated.CreatedAt = &created

	buckets := MonthlyActivity([]models.Application{
		app(models.StatusApplied, "2024-06-01"),
		app(models.StatusApplied, "2024-06-14"),
		app(models.StatusApplied, "2024-01-20"),
		app(models.StatusApplied, "2023-12-31"), // outside the window
		withCreated,
		app(models.StatusDraft, ""), // neither date nor creation time
	}, now)

	assert.Equal(t, []MonthBucket{
		{Month: "2024-01", Count: 1},
		{Month: "2024-02", Count: 0},
		{Month: "2024-03", Count: 0},
		{Month: "2024-04", Count: 0},
		{Month: "2024-05", Count: 1},
		{Month: "2024-06", Count: 2},
	}, buckets)
}

func TestMonthlyActivityPrefersExplicitDate(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a := app(models.StatusApplied, "2024-03-10")
	a.CreatedAt = &created

	buckets := MonthlyActivity([]models.Application{a}, now)
	assert.Equal(t, 1, buckets[2].Count)
	assert.Equal(t, 0, buckets[5].Count)
}

func TestAverageDwell(t *testing.T) {
	apps := []models.Application{
		app(models.StatusInterview, "",
			entry(models.StatusApplied, "2024-06-01"),
			entry(models.StatusInterview, "2024-06-11"),
		),
		app(models.StatusRejected, "",
			entry(models.StatusApplied, "2024-06-01"),
			entry(models.StatusRejected, "2024-06-05"),
		),
		// single entry contributes nothing
		app(models.StatusDraft, "", entry(models.StatusDraft, "2024-01-01")),
	}

	avg := AverageDwell(apps, now)

	assert.Equal(t, 7, avg[models.StatusApplied])   // (10 + 4) / 2
	assert.Equal(t, 5, avg[models.StatusInterview]) // 2024-06-11 to now is 4.5 days
	assert.Equal(t, 11, avg[models.StatusRejected]) // 10.5 days
	assert.Equal(t, 0, avg[models.StatusDraft])
	assert.Equal(t, 0, avg[models.StatusOffer])
}

func TestDwellSumsToElapsedTime(t *testing.T) {
	histories := [][]models.HistoryEntry{
		{entry(models.StatusDraft, "2024-01-01"), entry(models.StatusApplied, "2024-02-01")},
		{
			entry(models.StatusDraft, "2024-03-01"),
			entry(models.StatusApplied, "2024-03-04"),
			entry(models.StatusInterview, "2024-04-20"),
			entry(models.StatusOffer, "2024-05-30"),
		},
		{entry(models.StatusApplied, "2024-06-15"), entry(models.StatusApplied, "2024-06-15")},
	}

	for _, h := range histories {
		a := app(h[len(h)-1].Status, "", h...)
		spans := Dwell(a, now)
		require.NotNil(t, spans)

		total := 0.0
		for _, ds := range spans {
			for _, d := range ds {
				total += d
			}
		}
		first, err := time.ParseInLocation(models.DateLayout, h[0].Date, now.Location())
		require.NoError(t, err)
		assert.InDelta(t, now.Sub(first).Hours()/24, total, 0.5)
	}
}

func TestDwellSkipsShortOrBrokenHistory(t *testing.T) {
	assert.Nil(t, Dwell(app(models.StatusDraft, ""), now))
	assert.Nil(t, Dwell(app(models.StatusDraft, "", entry(models.StatusDraft, "2024-01-01")), now))
	assert.Nil(t, Dwell(app(models.StatusApplied, "",
		entry(models.StatusDraft, "yesterday"),
		entry(models.StatusApplied, "2024-01-01"),
	), now))
}

func TestDwellClampsFutureDates(t *testing.T) {
	// applied with a date after today, then interviewed today
	a := app(models.StatusInterview, "",
		entry(models.StatusApplied, "2024-06-20"),
		entry(models.StatusInterview, "2024-06-15"),
	)

	spans := Dwell(a, now)
	assert.Equal(t, []float64{0}, spans[models.StatusApplied])
	assert.Equal(t, []float64{0.5}, spans[models.StatusInterview])

	avg := AverageDwell([]models.Application{a}, now)
	assert.Equal(t, 0, avg[models.StatusApplied])
}

func TestBuild(t *testing.T) {
	apps := []models.Application{
		app(models.StatusDraft, "2024-06-01"),
		app(models.StatusOffer, "2024-06-02"),
	}
	cvs := []models.CV{{Name: "cv.pdf"}}

	d := Build(apps, cvs, now)
	assert.Equal(t, 2, d.Total)
	assert.Equal(t, 1, d.CVCount)
	assert.Equal(t, 50.0, d.SuccessRate)
	assert.Equal(t, 1, d.StatusCounts[models.StatusOffer])
	assert.Len(t, d.Activity, ActivityMonths)
	assert.Equal(t, 2, d.Activity[ActivityMonths-1].Count)
}
