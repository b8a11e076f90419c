package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/khrees2412/applytrack/internal/app"
	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/internal/gateway"
	"github.com/khrees2412/applytrack/internal/scraper"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/spf13/cobra"
)

// loadTimeout bounds the wait for the first snapshot of a collection
const loadTimeout = 15 * time.Second

// signedIn returns the App with the stored session restored
func signedIn(cmd *cobra.Command) (*app.App, error) {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	if _, err := a.SignIn(cmd.Context()); err != nil {
		return nil, err
	}
	return a, nil
}

// load waits for the first snapshot of c
func load[T any](ctx context.Context, c *gateway.Collection[T]) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	st, err := c.Loaded(ctx)
	if err != nil {
		return nil, err
	}
	return st.Items, nil
}

// findByID matches a full id or a unique prefix of one
func findByID[T any](items []T, id func(T) string, ref string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, apperr.New(apperr.ErrInvalidArgument, "find", "id is required")
	}

	var found []T
	for _, item := range items {
		if id(item) == ref {
			return item, nil
		}
		if strings.HasPrefix(id(item), ref) {
			found = append(found, item)
		}
	}
	switch len(found) {
	case 0:
		return zero, apperr.New(apperr.ErrNotFound, "find", fmt.Sprintf("no entry with id %q", ref))
	case 1:
		return found[0], nil
	default:
		return zero, apperr.New(apperr.ErrInvalidArgument, "find", fmt.Sprintf("id %q is ambiguous, use more characters", ref))
	}
}

func applicationID(a models.Application) string { return a.ID }
func cvID(c models.CV) string                   { return c.ID }
func profileID(p models.MasterProfile) string   { return p.ID }
func letterID(l models.CoverLetter) string      { return l.ID }

// shortID is what list output shows; any unique prefix is accepted back
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// confirm asks a yes/no question unless --yes was given
func confirm(cmd *cobra.Command, question string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// readInput returns inline text, else the contents of path ("-" is stdin)
func readInput(cmd *cobra.Command, inline, path string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if path == "" {
		return "", nil
	}
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// jobText collects a job description from --text, --file or --url
func jobText(cmd *cobra.Command, a *app.App) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")
	url, _ := cmd.Flags().GetString("url")

	s, err := readInput(cmd, text, file)
	if err != nil || s != "" || url == "" {
		return s, err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "⏳ Fetching posting...")
	p, err := scraper.FetchPostingText(cmd.Context(), url, a.Logger)
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

func addJobFlags(cmd *cobra.Command) {
	cmd.Flags().String("text", "", "Job description text")
	cmd.Flags().StringP("file", "f", "", "Read the job description from a file (- for stdin)")
	cmd.Flags().String("url", "", "Fetch the job description from a posting URL")
}

// userMessage turns an error into the text shown to the user
func userMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrAuthorizationDenied):
		return "access denied: " + apperr.Message(err)
	case errors.Is(err, apperr.ErrUnauthenticated):
		return apperr.Message(err)
	case errors.Is(err, apperr.ErrBusy), errors.Is(err, apperr.ErrAIParse), errors.Is(err, apperr.ErrAIRequest):
		return apperr.Message(err)
	default:
		return err.Error()
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
