// Package reader extracts readable article content from external URLs
// for the viewer's reading mode.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	log "github.com/stashyhq/stashy/internal/logging"
)

// Article is the extracted readable content.
type Article struct {
	Title    string `json:"title"`
	Byline   string `json:"byline"`
	Content  string `json:"content"`
	Excerpt  string `json:"excerpt"`
	SiteName string `json:"siteName"`
}

var (
	// ErrInvalidURL means the target is missing or not http/https.
	ErrInvalidURL = errors.New("invalid or missing url")

	// ErrUnreadable means the page was fetched but no article content
	// could be extracted.
	ErrUnreadable = errors.New("could not extract readable article content")
)

// FetchError means the target site answered with a non-success status.
type FetchError struct {
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not fetch article (%d)", e.StatusCode)
}

// Reader fetches and extracts articles. External sites fail in bursts,
// so fetches run through a circuit breaker: once a site storm trips it,
// callers fail fast instead of stacking stalled requests.
type Reader struct {
	http      *http.Client
	userAgent string
	breaker   *gobreaker.CircuitBreaker
}

// New returns a Reader using httpClient for outbound fetches. A nil
// httpClient falls back to a 20s-timeout default.
func New(userAgent string, httpClient *http.Client) *Reader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Reader{
		http:      httpClient,
		userAgent: userAgent,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "article-fetch",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= 5 && counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warnf("%s breaker: %s -> %s", name, from, to)
			},
		}),
	}
}

// ParseTargetURL validates a user-supplied article URL. Only absolute
// http/https URLs are accepted.
func ParseTargetURL(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidURL
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return parsed.String(), nil
}

// Extract fetches targetURL and returns its readable article content.
func (r *Reader) Extract(ctx context.Context, targetURL string) (*Article, error) {
	target, err := ParseTargetURL(targetURL)
	if err != nil {
		return nil, err
	}

	result, err := r.breaker.Execute(func() (any, error) {
		return r.fetch(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	doc := result.(*goquery.Document)

	article, err := extract(doc, target)
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (r *Reader) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("article fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to parse article HTML: %w", err)
	}
	return doc, nil
}
