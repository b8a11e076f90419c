// Package blob stores uploaded files and hands back a URL to retrieve them
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/khrees2412/applytrack/internal/apperr"
)

// Progress is reported while an upload is copied
type Progress struct {
	BytesTransferred int64
	TotalBytes       int64
}

// Percent returns the completed share in [0,100]
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	return float64(p.BytesTransferred) / float64(p.TotalBytes) * 100
}

// Store is the blob-storage collaborator
type Store interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, onProgress func(Progress)) (string, error)
	Delete(ctx context.Context, downloadURL string) error
}

// LocalStore keeps blobs under a directory and returns file:// URLs
type LocalStore struct {
	root string
	log  *slog.Logger
}

// NewLocalStore creates root if needed
func NewLocalStore(root string, log *slog.Logger) (*LocalStore, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalStore{root: abs, log: log.With("component", "blob")}, nil
}

// Upload copies r to path under the store root. A failed or cancelled copy
// leaves no partial file behind.
func (s *LocalStore) Upload(ctx context.Context, path string, r io.Reader, size int64, onProgress func(Progress)) (string, error) {
	dest, err := s.resolve(path)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpload, "upload", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", apperr.Wrap(apperr.ErrUpload, "upload", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpload, "upload", err)
	}

	pr := &progressReader{ctx: ctx, r: r, total: size, onProgress: onProgress}
	if onProgress != nil {
		onProgress(Progress{TotalBytes: size})
	}
	_, copyErr := io.Copy(f, pr)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(dest)
		s.log.Warn("upload failed", slog.String("path", path), slog.String("error", copyErr.Error()))
		return "", apperr.Wrap(apperr.ErrUpload, "upload", copyErr)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}
	s.log.Debug("upload complete", slog.String("path", path), slog.Int64("bytes", pr.read))
	return u.String(), nil
}

// Delete removes the blob behind a URL returned by Upload. A missing file is
// not an error.
func (s *LocalStore) Delete(ctx context.Context, downloadURL string) error {
	u, err := url.Parse(downloadURL)
	if err != nil || u.Scheme != "file" {
		return apperr.New(apperr.ErrInvalidArgument, "delete blob", "not a local blob url: "+downloadURL)
	}
	p := filepath.FromSlash(u.Path)
	if !s.contains(p) {
		return apperr.New(apperr.ErrInvalidArgument, "delete blob", "url outside blob store: "+downloadURL)
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty blob path")
	}
	dest := filepath.Join(s.root, filepath.FromSlash(path))
	if !s.contains(dest) {
		return "", fmt.Errorf("blob path escapes store: %s", path)
	}
	return dest, nil
}

func (s *LocalStore) contains(p string) bool {
	rel, err := filepath.Rel(s.root, filepath.Clean(p))
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type progressReader struct {
	ctx        context.Context
	r          io.Reader
	total      int64
	read       int64
	onProgress func(Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.onProgress != nil {
			p.onProgress(Progress{BytesTransferred: p.read, TotalBytes: p.total})
		}
	}
	return n, err
}
