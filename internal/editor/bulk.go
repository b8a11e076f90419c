package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/khrees2412/applytrack/pkg/models"
)

// Filter narrows the application list to the visible rows
type Filter struct {
	Status models.Status
	Query  string
}

// Apply keeps the list order
func (f Filter) Apply(apps []models.Application) []models.Application {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Application, 0, len(apps))
	for _, app := range apps {
		if f.Status != "" && app.Status != f.Status {
			continue
		}
		if q != "" && !matchesQuery(app, q) {
			continue
		}
		out = append(out, app)
	}
	return out
}

func matchesQuery(app models.Application, q string) bool {
	for _, field := range []string{app.Company, app.Position, app.Location, app.Notes} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Selection is a set of explicitly selected ids
type Selection map[string]struct{}

func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Selection) Toggle(id string) {
	if _, ok := s[id]; ok {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Targets is what a bulk action operates on: the selected visible rows when
// anything is selected, otherwise every visible row.
func Targets[T any](visible []T, sel Selection, id func(T) string) []T {
	if len(sel) == 0 {
		return visible
	}
	out := make([]T, 0, len(sel))
	for _, item := range visible {
		if sel.Has(id(item)) {
			out = append(out, item)
		}
	}
	return out
}

// DeleteAll deletes every target and reports how many succeeded. A failure
// does not stop the remaining deletes; all failures are joined.
func DeleteAll[T any](ctx context.Context, w Writer[T], targets []T, id func(T) string) (int, error) {
	var (
		deleted int
		errs    []error
	)
	for _, item := range targets {
		if err := w.Delete(ctx, id(item)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id(item), err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

// ApplicationID is the id accessor used with Targets and DeleteAll
func ApplicationID(a models.Application) string { return a.ID }
