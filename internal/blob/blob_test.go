package blob

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "blobs"), nil)
	require.NoError(t, err)
	return s
}

func localPath(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "file", u.Scheme)
	return filepath.FromSlash(u.Path)
}

func TestUploadReportsProgress(t *testing.T) {
	s := newTestStore(t)
	content := bytes.Repeat([]byte("cv"), 50_000)

	var events []Progress
	link, err := s.Upload(context.Background(), "cvs/u1/1700000000000_cv.pdf", bytes.NewReader(content), int64(len(content)), func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(localPath(t, link))
	require.NoError(t, err)
	assert.Equal(t, content, data)

	require.NotEmpty(t, events)
	assert.Equal(t, int64(0), events[0].BytesTransferred)
	last := events[len(events)-1]
	assert.Equal(t, int64(len(content)), last.BytesTransferred)
	assert.Equal(t, int64(len(content)), last.TotalBytes)
	assert.Equal(t, 100.0, last.Percent())
}

type brokenReader struct{ sent bool }

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func TestUploadFailureLeavesNoFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Upload(context.Background(), "cvs/u1/broken.pdf", &brokenReader{}, 100, nil)
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.Contains(t, err.Error(), "connection reset")

	_, statErr := os.Stat(filepath.Join(s.root, "cvs", "u1", "broken.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadCancelled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upload(ctx, "cvs/u1/cancelled.pdf", strings.NewReader("data"), 4, nil)
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploadRejectsEscapingPath(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Upload(context.Background(), "../outside.pdf", strings.NewReader("x"), 1, nil)
	assert.ErrorIs(t, err, apperr.ErrUpload)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link, err := s.Upload(ctx, "cvs/u1/cv.pdf", strings.NewReader("x"), 1, nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, link))
	_, statErr := os.Stat(localPath(t, link))
	assert.True(t, os.IsNotExist(statErr))

	// already gone
	assert.NoError(t, s.Delete(ctx, link))

	assert.ErrorIs(t, s.Delete(ctx, "https://example.com/cv.pdf"), apperr.ErrInvalidArgument)
	assert.ErrorIs(t, s.Delete(ctx, "file:///etc/passwd"), apperr.ErrInvalidArgument)
}

func TestPercentWithoutSize(t *testing.T) {
	assert.Equal(t, 0.0, Progress{BytesTransferred: 10}.Percent())
}
