package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapse spaces", "  Senior   Go\tEngineer  ", "Senior Go Engineer"},
		{"blank runs", "About us\n\n\n\nWhat you will do\r\n\r\n- ship", "About us\n\nWhat you will do\n\n- ship"},
		{"leading and trailing blanks", "\n\n  text \n\n", "text"},
		{"nbsp", "Remote (EU)", "Remote (EU)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"https://boards.greenhouse.io/acme/jobs/1", false},
		{" http://example.com/job ", false},
		{"ftp://example.com", true},
		{"example.com/job", true},
		{"", true},
	}
	for _, tt := range tests {
		_, err := ValidateURL(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, apperr.ErrInvalidArgument), tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
	}
}

// Needs a local Chrome; set APPLYTRACK_TEST_CHROME=1 to run.
func TestFetchPostingText(t *testing.T) {
	if os.Getenv("APPLYTRACK_TEST_CHROME") == "" {
		t.Skip("APPLYTRACK_TEST_CHROME not set")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Backend Engineer</title></head>
<body><nav>Menu</nav><div id="job-details">
<p>Acme is hiring a   Go engineer.</p>

<p>Skills: Go, PostgreSQL</p></div></body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	p, err := FetchPostingText(ctx, srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", p.Title)
	assert.Contains(t, p.Text, "Acme is hiring a Go engineer.")
	assert.NotContains(t, p.Text, "Menu")
}
