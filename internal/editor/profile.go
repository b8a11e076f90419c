package editor

import (
	"context"
	"strings"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/pkg/models"
)

// ProfileDraft is the master-profile form. List fields are comma separated.
type ProfileDraft struct {
	Name           string
	InputMode      models.InputMode
	PersonalInfo   models.PersonalInfo
	Summary        string
	Skills         string
	Experience     string
	Education      string
	Languages      string
	Certifications string
	RawText        string
}

// ProfileEditor creates and edits master profiles
type ProfileEditor struct {
	Draft ProfileDraft
	Open  bool

	profiles  Writer[models.MasterProfile]
	editingID string
	now       func() time.Time
}

func NewProfileEditor(profiles Writer[models.MasterProfile]) *ProfileEditor {
	return &ProfileEditor{profiles: profiles, now: time.Now}
}

func (e *ProfileEditor) New(mode models.InputMode) {
	e.Draft = ProfileDraft{InputMode: mode}
	e.editingID = ""
	e.Open = true
}

func (e *ProfileEditor) Edit(p models.MasterProfile) {
	if p.InputMode == models.InputModeText {
		e.Draft = ProfileDraft{Name: p.Name, InputMode: models.InputModeText, RawText: p.RawText}
	} else {
		e.Draft = ProfileDraft{
			Name:           p.Name,
			InputMode:      models.InputModeForm,
			PersonalInfo:   p.PersonalInfo,
			Summary:        p.Summary,
			Skills:         JoinList(p.Skills),
			Experience:     p.Experience,
			Education:      p.Education,
			Languages:      JoinList(p.Languages),
			Certifications: JoinList(p.Certifications),
		}
	}
	e.editingID = p.ID
	e.Open = true
}

func (e *ProfileEditor) Cancel() {
	e.Draft = ProfileDraft{}
	e.editingID = ""
	e.Open = false
}

// Build converts the draft into the stored profile. Text mode keeps only the
// name and raw text; form mode splits the list fields and drops the raw text.
func (d ProfileDraft) Build(updatedAt string) models.MasterProfile {
	if d.InputMode == models.InputModeText {
		return models.MasterProfile{
			Name:      d.Name,
			InputMode: models.InputModeText,
			RawText:   d.RawText,
			UpdatedAt: updatedAt,
		}
	}
	return models.MasterProfile{
		Name:           d.Name,
		InputMode:      models.InputModeForm,
		PersonalInfo:   d.PersonalInfo,
		Summary:        d.Summary,
		Skills:         SplitList(d.Skills),
		Experience:     d.Experience,
		Education:      d.Education,
		Languages:      SplitList(d.Languages),
		Certifications: SplitList(d.Certifications),
		UpdatedAt:      updatedAt,
	}
}

// Save writes the draft; it does nothing without a name
func (e *ProfileEditor) Save(ctx context.Context) (bool, error) {
	if strings.TrimSpace(e.Draft.Name) == "" {
		return false, nil
	}
	mode := e.Draft.InputMode
	if mode == "" {
		mode = models.InputModeForm
		e.Draft.InputMode = mode
	}
	if mode != models.InputModeForm && mode != models.InputModeText {
		return false, apperr.New(apperr.ErrInvalidArgument, "save profile", "input mode must be form or text")
	}

	p := e.Draft.Build(timestamp(e.now()))
	if e.editingID == "" {
		if _, err := e.profiles.Create(ctx, p); err != nil {
			return false, err
		}
	} else if err := e.profiles.Update(ctx, e.editingID, profileFields(p)); err != nil {
		return false, err
	}

	e.Cancel()
	return true, nil
}

// profileFields lists every field so switching mode clears the other mode's data
func profileFields(p models.MasterProfile) map[string]any {
	nonNil := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	return map[string]any{
		"name":           p.Name,
		"inputMode":      p.InputMode,
		"personalInfo":   p.PersonalInfo,
		"summary":        p.Summary,
		"skills":         nonNil(p.Skills),
		"experience":     p.Experience,
		"education":      p.Education,
		"languages":      nonNil(p.Languages),
		"certifications": nonNil(p.Certifications),
		"rawText":        p.RawText,
		"updatedAt":      p.UpdatedAt,
	}
}
