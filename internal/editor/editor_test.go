package editor

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/internal/blob"
	"github.com/khrees2412/applytrack/internal/database"
	"github.com/khrees2412/applytrack/internal/gateway"
	"github.com/khrees2412/applytrack/internal/stats"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

type update struct {
	id     string
	fields map[string]any
}

// memWriter records writes instead of sending them anywhere
type memWriter[T any] struct {
	created []T
	updates []update
	deleted []string
	failOn  map[string]error
	err     error
}

func (m *memWriter[T]) Create(ctx context.Context, item T) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.created = append(m.created, item)
	return "new-id", nil
}

func (m *memWriter[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	if m.err != nil {
		return m.err
	}
	m.updates = append(m.updates, update{id: id, fields: fields})
	return nil
}

func (m *memWriter[T]) Delete(ctx context.Context, id string) error {
	if err := m.failOn[id]; err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func TestApplicationSaveRequiresCompany(t *testing.T) {
	w := &memWriter[models.Application]{}
	e := NewApplicationEditor(w)
	e.New()
	e.Draft.Position = "Engineer"
	e.Draft.Company = "   "

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, w.created)
	assert.True(t, e.Open, "form stays open")
	assert.Equal(t, "Engineer", e.Draft.Position, "draft is kept")
}

func TestApplicationCreate(t *testing.T) {
	tests := []struct {
		name     string
		status   models.Status
		date     string
		wantDate string
	}{
		{"draft keeps empty date", models.StatusDraft, "", ""},
		{"applied defaults to today", models.StatusApplied, "", "2024-06-15"},
		{"applied keeps supplied date", models.StatusApplied, "2024-06-01", "2024-06-01"},
		{"interview does not default", models.StatusInterview, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &memWriter[models.Application]{}
			e := NewApplicationEditor(w)
			e.now = func() time.Time { return fixedNow }
			e.New()
			e.Draft.Company = "Acme"
			e.Draft.Status = tt.status
			e.Draft.Date = tt.date

			saved, err := e.Save(context.Background())
			require.NoError(t, err)
			assert.True(t, saved)
			assert.False(t, e.Open)
			assert.Equal(t, ApplicationDraft{}, e.Draft)

			require.Len(t, w.created, 1)
			app := w.created[0]
			assert.Equal(t, tt.wantDate, app.Date)
			require.Len(t, app.History, 1)
			assert.Equal(t, tt.status, app.History[0].Status)
		})
	}
}

func TestApplicationCreateDefaultsToDraft(t *testing.T) {
	w := &memWriter[models.Application]{}
	e := NewApplicationEditor(w)
	e.Draft = ApplicationDraft{Company: "Acme"}

	_, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, w.created[0].Status)
}

func TestApplicationRejectsUnknownStatus(t *testing.T) {
	e := NewApplicationEditor(&memWriter[models.Application]{})
	e.New()
	e.Draft.Company = "Acme"
	e.Draft.Status = "Ghosted"

	_, err := e.Save(context.Background())
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestApplicationStatusChangeAppendsHistory(t *testing.T) {
	w := &memWriter[models.Application]{}
	e := NewApplicationEditor(w)
	e.now = func() time.Time { return fixedNow }

	existing := models.Application{
		Meta:    models.Meta{ID: "app-1"},
		Company: "Acme",
		Status:  models.StatusApplied,
		Date:    "2024-06-01",
		History: []models.HistoryEntry{
			{Status: models.StatusDraft, Date: "2024-05-30"},
			{Status: models.StatusApplied, Date: "2024-06-01"},
		},
	}
	require.NoError(t, e.SetStatus(context.Background(), existing, models.StatusInterview, "phone screen"))

	require.Len(t, w.updates, 1)
	u := w.updates[0]
	assert.Equal(t, "app-1", u.id)
	assert.Equal(t, models.StatusInterview, u.fields["status"])
	assert.Equal(t, "2024-06-01", u.fields["date"])
	history := u.fields["history"].([]models.HistoryEntry)
	require.Len(t, history, 3)
	assert.Equal(t, models.HistoryEntry{Status: models.StatusInterview, Date: "2024-06-15", Note: "phone screen"}, history[2])
	assert.Len(t, existing.History, 2, "the input entity is not modified")
}

func TestApplicationEditWithoutStatusChange(t *testing.T) {
	w := &memWriter[models.Application]{}
	e := NewApplicationEditor(w)
	e.Edit(models.Application{Meta: models.Meta{ID: "app-1"}, Company: "Acme", Status: models.StatusApplied})
	e.Draft.Notes = "recruiter: Jane"

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)
	require.Len(t, w.updates, 1)
	_, hasHistory := w.updates[0].fields["history"]
	assert.False(t, hasHistory)
	assert.Equal(t, "", w.updates[0].fields["date"], "already applied, no default date")
}

func TestApplicationWriteFailureKeepsDraft(t *testing.T) {
	w := &memWriter[models.Application]{err: apperr.New(apperr.ErrWrite, "create", "permission denied")}
	e := NewApplicationEditor(w)
	e.New()
	e.Draft.Company = "Acme"

	saved, err := e.Save(context.Background())
	assert.False(t, saved)
	assert.ErrorIs(t, err, apperr.ErrWrite)
	assert.True(t, e.Open)
	assert.Equal(t, "Acme", e.Draft.Company)
}

func TestTasksAndDocuments(t *testing.T) {
	w := &memWriter[models.Application]{}
	e := NewApplicationEditor(w)
	e.now = func() time.Time { return fixedNow }
	ctx := context.Background()
	app := models.Application{Meta: models.Meta{ID: "app-1"}, Company: "Acme"}

	task, err := e.AddTask(ctx, app, "  send portfolio ")
	require.NoError(t, err)
	assert.Equal(t, "send portfolio", task.Text)
	assert.NotEmpty(t, task.ID)

	app.Tasks = []models.Task{task}
	require.NoError(t, e.ToggleTask(ctx, app, task.ID))
	tasks := w.updates[1].fields["tasks"].([]models.Task)
	assert.True(t, tasks[0].Completed)
	assert.False(t, app.Tasks[0].Completed)

	require.NoError(t, e.RemoveTask(ctx, app, task.ID))
	assert.Empty(t, w.updates[2].fields["tasks"])

	assert.ErrorIs(t, e.ToggleTask(ctx, app, "missing"), apperr.ErrNotFound)
	_, err = e.AddTask(ctx, app, " ")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	doc, err := e.AttachDocument(ctx, app, "Portfolio", "https://example.com/p.pdf", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", doc.Date)

	app.Documents = []models.Attachment{doc}
	require.NoError(t, e.RemoveDocument(ctx, app, doc.ID))
	assert.ErrorIs(t, e.RemoveDocument(ctx, app, "missing"), apperr.ErrNotFound)
}

func TestNextVersion(t *testing.T) {
	existing := []models.CV{
		{Role: "Backend", Lang: "EN", BaseName: "Backend_EN", Version: 1},
		{Role: "Backend", Lang: "EN", BaseName: "Backend_EN", Version: 2},
		{Role: "Backend", Lang: "DE", BaseName: "Backend_DE", Version: 1},
		{Role: "Data Analyst", Lang: "EN", BaseName: "Data Analyst_EN", Version: 1},
	}

	assert.Equal(t, 3, NextVersion(existing, "Backend", "EN"))
	assert.Equal(t, 2, NextVersion(existing, "Backend", "DE"))
	assert.Equal(t, 1, NextVersion(existing, "Frontend", "EN"))

	// after deleting version 1 the next number is still unused
	assert.Equal(t, 3, NextVersion(existing[1:], "Backend", "EN"))

	// records written without baseName are grouped by role and lang
	legacy := []models.CV{{Role: "Backend", Lang: "EN"}}
	assert.Equal(t, 2, NextVersion(legacy, "Backend", "EN"))
}

func TestCVSaveAssignsVersionThree(t *testing.T) {
	store, err := blob.NewLocalStore(filepath.Join(t.TempDir(), "blobs"), nil)
	require.NoError(t, err)
	w := &memWriter[models.CV]{}
	e := NewCVEditor(w, store, "user-u")
	e.now = func() time.Time { return fixedNow }

	existing := []models.CV{
		{Meta: models.Meta{ID: "a"}, Role: "Backend", Lang: "EN", BaseName: "Backend_EN", Version: 1},
		{Meta: models.Meta{ID: "b"}, Role: "Backend", Lang: "EN", BaseName: "Backend_EN", Version: 2},
	}

	e.New("Backend", "EN")
	saved, err := e.Save(context.Background(), existing, nil)
	require.NoError(t, err)
	assert.Nil(t, saved, "no file selected")

	content := []byte("%PDF-1.4 fake")
	e.Draft.File = &CVFile{Name: "cv.pdf", Size: int64(len(content)), Body: bytes.NewReader(content)}
	var last blob.Progress
	saved, err = e.Save(context.Background(), existing, func(p blob.Progress) { last = p })
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.False(t, e.Open)

	require.Len(t, w.created, 1)
	cv := w.created[0]
	assert.Equal(t, 3, cv.Version)
	assert.Equal(t, cv.Version, saved.Version, "returned version is the stored one")
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Backend_EN", cv.BaseName)
	assert.Equal(t, "cv.pdf", cv.Name)
	assert.Equal(t, "2024-06-15", cv.Date)
	assert.True(t, strings.HasPrefix(cv.DownloadURL, "file://"))
	assert.Contains(t, cv.DownloadURL, "cvs/user-u/1718447400000_cv.pdf")
	assert.Equal(t, int64(len(content)), last.BytesTransferred)
}

func TestCVMetadataFailureIsSurfaced(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blobs")
	store, err := blob.NewLocalStore(root, nil)
	require.NoError(t, err)
	w := &memWriter[models.CV]{err: apperr.New(apperr.ErrWrite, "create cvs", "quota exceeded")}
	e := NewCVEditor(w, store, "user-u")

	e.New("Backend", "EN")
	e.Draft.File = &CVFile{Name: "cv.pdf", Size: 3, Body: strings.NewReader("pdf")}
	saved, err := e.Save(context.Background(), nil, nil)
	assert.Nil(t, saved)
	assert.ErrorIs(t, err, apperr.ErrWrite)
	assert.True(t, e.Open)

	matches, _ := filepath.Glob(filepath.Join(root, "cvs", "user-u", "*"))
	assert.Empty(t, matches, "orphaned upload is removed")
}

func TestProfileSave(t *testing.T) {
	t.Run("requires name", func(t *testing.T) {
		w := &memWriter[models.MasterProfile]{}
		e := NewProfileEditor(w)
		e.New(models.InputModeText)
		e.Draft.RawText = "10 years of Go"

		saved, err := e.Save(context.Background())
		require.NoError(t, err)
		assert.False(t, saved)
		assert.Empty(t, w.created)
	})

	t.Run("form splits lists", func(t *testing.T) {
		w := &memWriter[models.MasterProfile]{}
		e := NewProfileEditor(w)
		e.now = func() time.Time { return fixedNow }
		e.New(models.InputModeForm)
		e.Draft.Name = "Backend"
		e.Draft.Skills = "Go, PostgreSQL, ,Kubernetes"
		e.Draft.Languages = "English"
		e.Draft.RawText = "ignored"

		saved, err := e.Save(context.Background())
		require.NoError(t, err)
		assert.True(t, saved)
		p := w.created[0]
		assert.Equal(t, []string{"Go", "PostgreSQL", "Kubernetes"}, p.Skills)
		assert.Equal(t, []string{"English"}, p.Languages)
		assert.Empty(t, p.Certifications)
		assert.Empty(t, p.RawText)
		assert.Equal(t, models.InputModeForm, p.InputMode)
		assert.Equal(t, "2024-06-15T10:30:00Z", p.UpdatedAt)
	})

	t.Run("text keeps only raw text", func(t *testing.T) {
		w := &memWriter[models.MasterProfile]{}
		e := NewProfileEditor(w)
		e.New(models.InputModeText)
		e.Draft.Name = "Quick"
		e.Draft.RawText = "10 years of Go"
		e.Draft.Skills = "ignored"

		_, err := e.Save(context.Background())
		require.NoError(t, err)
		p := w.created[0]
		assert.Equal(t, "10 years of Go", p.RawText)
		assert.Nil(t, p.Skills)
	})

	t.Run("switching mode on edit clears the other fields", func(t *testing.T) {
		w := &memWriter[models.MasterProfile]{}
		e := NewProfileEditor(w)
		e.Edit(models.MasterProfile{
			Meta:      models.Meta{ID: "p1"},
			Name:      "Backend",
			InputMode: models.InputModeForm,
			Skills:    []string{"Go", "SQL"},
		})
		assert.Equal(t, "Go, SQL", e.Draft.Skills)

		e.Draft.InputMode = models.InputModeText
		e.Draft.RawText = "free text"
		_, err := e.Save(context.Background())
		require.NoError(t, err)

		u := w.updates[0]
		assert.Equal(t, "p1", u.id)
		assert.Equal(t, []string{}, u.fields["skills"])
		assert.Equal(t, "free text", u.fields["rawText"])
	})
}

func TestCoverLetterSave(t *testing.T) {
	w := &memWriter[models.CoverLetter]{}
	e := NewCoverLetterEditor(w)
	e.New()
	e.Draft.Company = "Acme"
	e.Draft.Position = "Engineer"

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved, "content is required")

	e.Draft.Content = "Dear Acme,"
	saved, err = e.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "Engineer at Acme", w.created[0].Title)

	e.Edit(models.CoverLetter{Meta: models.Meta{ID: "l1"}, Title: "Mine", Content: "old"})
	e.Draft.Content = "new"
	_, err = e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", w.updates[0].fields["content"])
	assert.Equal(t, "Mine", w.updates[0].fields["title"])
}

func TestLinkToApplication(t *testing.T) {
	w := &memWriter[models.AIOutput]{}
	letter := models.CoverLetter{Content: "Dear Acme,", JobDescription: "Go engineer"}

	_, err := LinkToApplication(context.Background(), w, letter, "", fixedNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = LinkToApplication(context.Background(), w, letter, "app-1", fixedNow)
	require.NoError(t, err)
	out := w.created[0]
	assert.Equal(t, models.OutputCoverLetter, out.Type)
	assert.Equal(t, "app-1", out.ApplicationID)
	assert.Equal(t, "Go engineer", out.OriginalPrompt)
}

func TestFilterAndTargets(t *testing.T) {
	apps := []models.Application{
		{Meta: models.Meta{ID: "1"}, Company: "Acme", Position: "Go Engineer", Status: models.StatusApplied},
		{Meta: models.Meta{ID: "2"}, Company: "Globex", Position: "SRE", Status: models.StatusApplied},
		{Meta: models.Meta{ID: "3"}, Company: "Initech", Position: "Go Developer", Status: models.StatusDraft},
	}

	visible := Filter{Status: models.StatusApplied}.Apply(apps)
	assert.Len(t, visible, 2)

	visible = Filter{Query: "go"}.Apply(apps)
	require.Len(t, visible, 2)
	assert.Equal(t, "1", visible[0].ID)
	assert.Equal(t, "3", visible[1].ID)

	assert.Len(t, Targets(visible, NewSelection(), ApplicationID), 2, "no selection means every visible row")

	sel := NewSelection("3", "2")
	targets := Targets(visible, sel, ApplicationID)
	require.Len(t, targets, 1, "hidden rows are never targeted")
	assert.Equal(t, "3", targets[0].ID)

	sel.Toggle("3")
	sel.Toggle("1")
	assert.True(t, sel.Has("1"))
	assert.False(t, sel.Has("3"))
}

func TestDeleteAllAggregatesFailures(t *testing.T) {
	w := &memWriter[models.Application]{failOn: map[string]error{"2": errors.New("permission denied")}}
	apps := []models.Application{
		{Meta: models.Meta{ID: "1"}},
		{Meta: models.Meta{ID: "2"}},
		{Meta: models.Meta{ID: "3"}},
	}

	n, err := DeleteAll(context.Background(), w, apps, ApplicationID)
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, []string{"1", "3"}, w.deleted)
}

func TestCSVExport(t *testing.T) {
	apps := []models.Application{{
		Company:  "Acme, Inc.",
		Position: "Engineer",
		Status:   models.StatusApplied,
		Date:     "2024-06-15",
		Notes:    "met at meetup, great team\nfollow up\r\nnext week",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteApplicationsCSV(&buf, apps))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Company,Position,Status,Date,Location,Salary,URL,Notes", lines[0])

	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, 8)
	assert.Equal(t, "Acme; Inc.", fields[0])
	assert.Equal(t, "met at meetup; great team follow up next week", fields[7])
	assert.NotContains(t, buf.String(), `"`)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "applications_2024-06-15.csv", ExportFileName(fixedNow))
}

// End to end through the gateway and a real store
func TestApplicationLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := database.Open(ctx, database.Options{Driver: database.DriverSQLite, DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer store.Close()

	apps := gateway.New[models.Application](store, models.CollectionApplications, nil)
	defer apps.Close()
	require.NoError(t, apps.Bind(ctx, models.CollectionApplications, "user-u"))

	e := NewApplicationEditor(apps)
	e.New()
	e.Draft.Company = "Acme"
	e.Draft.Position = "Engineer"
	e.Draft.Status = models.StatusDraft
	saved, err := e.Save(ctx)
	require.NoError(t, err)
	require.True(t, saved)

	st, err := apps.Wait(ctx, func(s gateway.State[models.Application]) bool { return len(s.Items) == 1 })
	require.NoError(t, err)
	created := st.Items[0]

	counts := stats.StatusCounts(st.Items)
	assert.Equal(t, 1, counts[models.StatusDraft])
	assert.Equal(t, 0, counts[models.StatusApplied]+counts[models.StatusInterview]+counts[models.StatusOffer]+counts[models.StatusRejected])

	today := time.Now().Format(models.DateLayout)
	require.NoError(t, e.SetStatus(ctx, created, models.StatusApplied, ""))

	st, err = apps.Wait(ctx, func(s gateway.State[models.Application]) bool {
		return len(s.Items) == 1 && s.Items[0].Status == models.StatusApplied
	})
	require.NoError(t, err)
	updated := st.Items[0]
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, today, updated.Date)
	require.Len(t, updated.History, 2)
	assert.Equal(t, models.HistoryEntry{Status: models.StatusApplied, Date: today}, updated.History[1])
}
