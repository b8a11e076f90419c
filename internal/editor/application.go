package editor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/pkg/models"
)

// ApplicationDraft is the form state of an application
type ApplicationDraft struct {
	Company        string
	Position       string
	Status         models.Status
	Location       string
	Salary         string
	URL            string
	Notes          string
	JobDescription string
	ProfileID      string
	Date           string
	// Note is recorded on the history entry of a status change
	Note string
}

// ApplicationEditor creates and edits applications
type ApplicationEditor struct {
	Draft ApplicationDraft
	Open  bool

	apps    Writer[models.Application]
	editing *models.Application
	now     func() time.Time
}

func NewApplicationEditor(apps Writer[models.Application]) *ApplicationEditor {
	return &ApplicationEditor{apps: apps, now: time.Now}
}

// New opens an empty form
func (e *ApplicationEditor) New() {
	e.Draft = ApplicationDraft{Status: models.StatusDraft}
	e.editing = nil
	e.Open = true
}

// Edit opens the form on an existing application
func (e *ApplicationEditor) Edit(app models.Application) {
	e.Draft = ApplicationDraft{
		Company:        app.Company,
		Position:       app.Position,
		Status:         app.Status,
		Location:       app.Location,
		Salary:         app.Salary,
		URL:            app.URL,
		Notes:          app.Notes,
		JobDescription: app.JobDescription,
		ProfileID:      app.ProfileID,
		Date:           app.Date,
	}
	e.editing = &app
	e.Open = true
}

// Editing reports whether the form is bound to an existing application
func (e *ApplicationEditor) Editing() bool {
	return e.editing != nil
}

// Cancel closes the form and drops the draft
func (e *ApplicationEditor) Cancel() {
	e.Draft = ApplicationDraft{}
	e.editing = nil
	e.Open = false
}

// Save writes the draft. It does nothing and returns false when the company
// is empty. New applications start their history with the initial status; a
// status change on an existing application appends one entry dated today.
func (e *ApplicationEditor) Save(ctx context.Context) (bool, error) {
	d := e.Draft
	if strings.TrimSpace(d.Company) == "" {
		return false, nil
	}
	if d.Status == "" {
		d.Status = models.StatusDraft
	}
	if !d.Status.Valid() {
		return false, apperr.New(apperr.ErrInvalidArgument, "save application", fmt.Sprintf("unknown status %q", d.Status))
	}

	today := e.now().Format(models.DateLayout)
	statusChanged := e.editing == nil || e.editing.Status != d.Status
	if d.Date == "" && d.Status == models.StatusApplied && statusChanged {
		d.Date = today
	}

	if e.editing == nil {
		if err := e.create(ctx, d, today); err != nil {
			return false, err
		}
	} else {
		if err := e.update(ctx, d, today, statusChanged); err != nil {
			return false, err
		}
	}

	e.Cancel()
	return true, nil
}

func (e *ApplicationEditor) create(ctx context.Context, d ApplicationDraft, today string) error {
	started := d.Date
	if started == "" {
		started = today
	}
	app := models.Application{
		Company:        d.Company,
		Position:       d.Position,
		Status:         d.Status,
		Location:       d.Location,
		Salary:         d.Salary,
		URL:            d.URL,
		Notes:          d.Notes,
		JobDescription: d.JobDescription,
		ProfileID:      d.ProfileID,
		Date:           d.Date,
		History:        []models.HistoryEntry{{Status: d.Status, Date: started, Note: d.Note}},
	}
	_, err := e.apps.Create(ctx, app)
	return err
}

func (e *ApplicationEditor) update(ctx context.Context, d ApplicationDraft, today string, statusChanged bool) error {
	fields := map[string]any{
		"company":        d.Company,
		"position":       d.Position,
		"status":         d.Status,
		"location":       d.Location,
		"salary":         d.Salary,
		"url":            d.URL,
		"notes":          d.Notes,
		"jobDescription": d.JobDescription,
		"profileId":      d.ProfileID,
		"date":           d.Date,
	}
	if statusChanged {
		history := append([]models.HistoryEntry{}, e.editing.History...)
		history = append(history, models.HistoryEntry{Status: d.Status, Date: today, Note: d.Note})
		fields["history"] = history
	}
	return e.apps.Update(ctx, e.editing.ID, fields)
}

// SetStatus moves app to status through the regular edit flow
func (e *ApplicationEditor) SetStatus(ctx context.Context, app models.Application, status models.Status, note string) error {
	e.Edit(app)
	e.Draft.Status = status
	e.Draft.Note = note
	_, err := e.Save(ctx)
	return err
}

// AddTask appends a sub-task to app
func (e *ApplicationEditor) AddTask(ctx context.Context, app models.Application, text string) (models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Task{}, apperr.New(apperr.ErrInvalidArgument, "add task", "task text is empty")
	}
	task := models.Task{ID: uuid.NewString(), Text: text}
	tasks := append(append([]models.Task{}, app.Tasks...), task)
	if err := e.apps.Update(ctx, app.ID, map[string]any{"tasks": tasks}); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ToggleTask flips the completed flag of one sub-task
func (e *ApplicationEditor) ToggleTask(ctx context.Context, app models.Application, taskID string) error {
	tasks := append([]models.Task{}, app.Tasks...)
	i := indexOf(tasks, func(t models.Task) bool { return t.ID == taskID })
	if i < 0 {
		return apperr.New(apperr.ErrNotFound, "toggle task", taskID)
	}
	tasks[i].Completed = !tasks[i].Completed
	return e.apps.Update(ctx, app.ID, map[string]any{"tasks": tasks})
}

// RemoveTask drops one sub-task
func (e *ApplicationEditor) RemoveTask(ctx context.Context, app models.Application, taskID string) error {
	i := indexOf(app.Tasks, func(t models.Task) bool { return t.ID == taskID })
	if i < 0 {
		return apperr.New(apperr.ErrNotFound, "remove task", taskID)
	}
	tasks := append(append([]models.Task{}, app.Tasks[:i]...), app.Tasks[i+1:]...)
	return e.apps.Update(ctx, app.ID, map[string]any{"tasks": tasks})
}

// AttachDocument links an external document to app
func (e *ApplicationEditor) AttachDocument(ctx context.Context, app models.Application, name, url, docType string) (models.Attachment, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
		return models.Attachment{}, apperr.New(apperr.ErrInvalidArgument, "attach document", "name and url are required")
	}
	doc := models.Attachment{
		ID:   uuid.NewString(),
		Name: name,
		URL:  url,
		Type: docType,
		Date: e.now().Format(models.DateLayout),
	}
	docs := append(append([]models.Attachment{}, app.Documents...), doc)
	if err := e.apps.Update(ctx, app.ID, map[string]any{"documents": docs}); err != nil {
		return models.Attachment{}, err
	}
	return doc, nil
}

// RemoveDocument drops one attachment
func (e *ApplicationEditor) RemoveDocument(ctx context.Context, app models.Application, docID string) error {
	i := indexOf(app.Documents, func(d models.Attachment) bool { return d.ID == docID })
	if i < 0 {
		return apperr.New(apperr.ErrNotFound, "remove document", docID)
	}
	docs := append(append([]models.Attachment{}, app.Documents[:i]...), app.Documents[i+1:]...)
	return e.apps.Update(ctx, app.ID, map[string]any{"documents": docs})
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}
