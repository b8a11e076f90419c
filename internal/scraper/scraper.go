// Package scraper renders job posting pages in headless Chrome and returns
// their readable text for analysis.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/khrees2412/applytrack/internal/apperr"
)

const (
	pageLoadTimeout = 30 * time.Second
	settleDelay     = 2 * time.Second
)

// Posting is the rendered text of one job page
type Posting struct {
	URL   string
	Title string
	Text  string
}

// descriptionSelectors are tried in order; body is the fallback
var descriptionSelectors = []string{
	`.jobs-description-content__text`,
	`.show-more-less-html__markup`,
	`.jobs-box__html-content`,
	`#job-details`,
	`.description__text`,
	`#content .job-post`,
	`.posting-page .section-wrapper`,
	`[data-testid="jobDescriptionText"]`,
	`#jobDescriptionText`,
	`main`,
	`body`,
}

var showMoreSelectors = []string{
	`button[aria-label*="Show more"]`,
	`button[aria-label*="see more"]`,
	`.show-more-less-html__button`,
	`button.jobs-description__footer-button`,
}

// createBrowserContext creates a new browser context with appropriate options
func createBrowserContext(parent context.Context, log *slog.Logger) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel2 := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		if strings.Contains(msg, "could not unmarshal event") ||
			strings.Contains(msg, "unknown PrivateNetworkRequestPolicy") ||
			strings.Contains(msg, "unknown ClientNavigationReason") {
			return
		}
		log.Debug("chromedp", slog.String("msg", msg))
	}))

	return ctx, func() {
		cancel2()
		cancel()
	}
}

// ValidateURL accepts absolute http(s) URLs only
func ValidateURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidArgument, "fetch posting", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "fetch posting", fmt.Sprintf("not a web URL: %q", raw))
	}
	return u.String(), nil
}

// FetchPostingText navigates to rawURL and returns the text of the job
// description, falling back to the whole page body.
func FetchPostingText(ctx context.Context, rawURL string, log *slog.Logger) (*Posting, error) {
	target, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "scraper")

	browserCtx, cancel := createBrowserContext(ctx, log)
	defer cancel()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, pageLoadTimeout)
	defer cancelTimeout()

	p := &Posting{URL: target}
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.Title(&p.Title),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Expand collapsed descriptions where the board hides them
			for _, sel := range showMoreSelectors {
				var n int
				if err := chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, sel), &n).Do(ctx); err == nil && n > 0 {
					_ = chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible).Do(ctx)
				}
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, sel := range descriptionSelectors {
				var n int
				if err := chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, sel), &n).Do(ctx); err != nil || n == 0 {
					continue
				}
				var text string
				if err := chromedp.Text(sel, &text, chromedp.ByQuery).Do(ctx); err == nil && strings.TrimSpace(text) != "" {
					log.Debug("description found", slog.String("selector", sel))
					p.Text = text
					return nil
				}
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}

	p.Title = strings.TrimSpace(p.Title)
	p.Text = CleanText(p.Text)
	if p.Text == "" {
		return nil, apperr.New(apperr.ErrNotFound, "fetch posting", "no readable text on "+target)
	}
	return p, nil
}

// CleanText trims every line, collapses runs of spaces and keeps at most one
// blank line between paragraphs.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	if len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
