package editor

import (
	"context"
	"strings"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/pkg/models"
)

// CoverLetterDraft is the cover-letter form state
type CoverLetterDraft struct {
	Title          string
	Company        string
	Position       string
	Content        string
	JobDescription string
	ProfileID      string
	ApplicationID  string
}

// CoverLetterEditor creates and edits saved cover letters
type CoverLetterEditor struct {
	Draft CoverLetterDraft
	Open  bool

	letters   Writer[models.CoverLetter]
	editingID string
	now       func() time.Time
}

func NewCoverLetterEditor(letters Writer[models.CoverLetter]) *CoverLetterEditor {
	return &CoverLetterEditor{letters: letters, now: time.Now}
}

func (e *CoverLetterEditor) New() {
	e.Draft = CoverLetterDraft{}
	e.editingID = ""
	e.Open = true
}

func (e *CoverLetterEditor) Edit(l models.CoverLetter) {
	e.Draft = CoverLetterDraft{
		Title:          l.Title,
		Company:        l.Company,
		Position:       l.Position,
		Content:        l.Content,
		JobDescription: l.JobDescription,
		ProfileID:      l.ProfileID,
		ApplicationID:  l.ApplicationID,
	}
	e.editingID = l.ID
	e.Open = true
}

func (e *CoverLetterEditor) Cancel() {
	e.Draft = CoverLetterDraft{}
	e.editingID = ""
	e.Open = false
}

// LetterTitle derives a title from position and company when none is given
func LetterTitle(d CoverLetterDraft) string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	switch {
	case d.Position != "" && d.Company != "":
		return d.Position + " at " + d.Company
	case d.Position != "":
		return d.Position
	case d.Company != "":
		return d.Company
	}
	return "Untitled cover letter"
}

// Save writes the draft; it does nothing without content
func (e *CoverLetterEditor) Save(ctx context.Context) (bool, error) {
	d := e.Draft
	if strings.TrimSpace(d.Content) == "" {
		return false, nil
	}

	l := models.CoverLetter{
		Title:          LetterTitle(d),
		Company:        d.Company,
		Position:       d.Position,
		Content:        d.Content,
		JobDescription: d.JobDescription,
		ProfileID:      d.ProfileID,
		ApplicationID:  d.ApplicationID,
		UpdatedAt:      timestamp(e.now()),
	}

	if e.editingID == "" {
		if _, err := e.letters.Create(ctx, l); err != nil {
			return false, err
		}
	} else {
		err := e.letters.Update(ctx, e.editingID, map[string]any{
			"title":          l.Title,
			"company":        l.Company,
			"position":       l.Position,
			"content":        l.Content,
			"jobDescription": l.JobDescription,
			"profileId":      l.ProfileID,
			"applicationId":  l.ApplicationID,
			"updatedAt":      l.UpdatedAt,
		})
		if err != nil {
			return false, err
		}
	}

	e.Cancel()
	return true, nil
}

// LinkToApplication records letter as the cover-letter output of an application
func LinkToApplication(ctx context.Context, outputs Writer[models.AIOutput], letter models.CoverLetter, applicationID string, now time.Time) (string, error) {
	if applicationID == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "link cover letter", "application id is required")
	}
	ts := timestamp(now)
	return outputs.Create(ctx, models.AIOutput{
		ApplicationID:  applicationID,
		Type:           models.OutputCoverLetter,
		Content:        letter.Content,
		OriginalPrompt: letter.JobDescription,
		UpdatedAt:      ts,
	})
}
