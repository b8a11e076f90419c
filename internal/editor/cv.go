package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/khrees2412/applytrack/internal/blob"
	"github.com/khrees2412/applytrack/pkg/models"
)

// CVFile is the file picked for upload
type CVFile struct {
	Name string
	Size int64
	Body io.Reader
}

// CVDraft is the upload form state
type CVDraft struct {
	Role string
	Lang string
	File *CVFile
}

// CVEditor uploads CV files and records their metadata
type CVEditor struct {
	Draft CVDraft
	Open  bool

	cvs   Writer[models.CV]
	blobs blob.Store
	owner string
	now   func() time.Time
}

// NewCVEditor binds the editor to the signed-in owner, whose id prefixes every upload path
func NewCVEditor(cvs Writer[models.CV], blobs blob.Store, owner string) *CVEditor {
	return &CVEditor{cvs: cvs, blobs: blobs, owner: owner, now: time.Now}
}

func (e *CVEditor) New(role, lang string) {
	e.Draft = CVDraft{Role: role, Lang: lang}
	e.Open = true
}

func (e *CVEditor) Cancel() {
	e.Draft = CVDraft{}
	e.Open = false
}

// NextVersion numbers a new CV in the (role, lang) group of existing. It is one
// past both the group size and the highest version in use, so numbers are
// never handed out twice even after deletions.
func NextVersion(existing []models.CV, role, lang string) int {
	base := models.CVBaseName(role, lang)
	count, highest := 0, 0
	for _, cv := range existing {
		b := cv.BaseName
		if b == "" {
			b = models.CVBaseName(cv.Role, cv.Lang)
		}
		if b != base {
			continue
		}
		count++
		if cv.Version > highest {
			highest = cv.Version
		}
	}
	return max(count, highest) + 1
}

// UploadPath is where a CV file lands in blob storage
func UploadPath(owner string, at time.Time, name string) string {
	return fmt.Sprintf("cvs/%s/%d_%s", owner, at.UnixMilli(), name)
}

// Save uploads the selected file and then stores its metadata, returning the
// stored CV with its assigned version. It returns nil without a file. existing
// is the current CV list used for versioning. When the metadata write fails
// the uploaded blob is removed again and the write error is returned.
func (e *CVEditor) Save(ctx context.Context, existing []models.CV, onProgress func(blob.Progress)) (*models.CV, error) {
	d := e.Draft
	if d.File == nil || d.File.Body == nil || strings.TrimSpace(d.File.Name) == "" {
		return nil, nil
	}

	now := e.now()
	link, err := e.blobs.Upload(ctx, UploadPath(e.owner, now, d.File.Name), d.File.Body, d.File.Size, onProgress)
	if err != nil {
		return nil, err
	}

	cv := models.CV{
		Name:        d.File.Name,
		Role:        d.Role,
		Lang:        d.Lang,
		BaseName:    models.CVBaseName(d.Role, d.Lang),
		Version:     NextVersion(existing, d.Role, d.Lang),
		DownloadURL: link,
		Date:        now.Format(models.DateLayout),
	}
	id, err := e.cvs.Create(ctx, cv)
	if err != nil {
		if derr := e.blobs.Delete(ctx, link); derr != nil {
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}
	cv.ID = id

	e.Cancel()
	return &cv, nil
}

// Delete removes the metadata and then the stored file
func (e *CVEditor) Delete(ctx context.Context, cv models.CV) error {
	if err := e.cvs.Delete(ctx, cv.ID); err != nil {
		return err
	}
	if cv.DownloadURL == "" {
		return nil
	}
	return e.blobs.Delete(ctx, cv.DownloadURL)
}
