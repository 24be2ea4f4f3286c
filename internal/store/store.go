// Package store provides the persisted tweet store behind the viewer:
// paginated listing with search and tag filtering, and upsert of
// bookmarks pulled from X.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/stashyhq/stashy/internal/config"
	"github.com/stashyhq/stashy/internal/tweets"
)

// ErrNotFound is returned when a tweet id has no row.
var ErrNotFound = errors.New("tweet not found")

// PageSize is the fixed listing page size.
const PageSize = 20

// ListQuery narrows a listing page.
type ListQuery struct {
	// Page is zero-based.
	Page int
	// Search matches tweet text and author handle, case-insensitively.
	Search string
	// Tags filters to tweets carrying any of the given tags.
	Tags []string
}

// Store is the persistence contract for saved tweets.
// Implementations must be safe for concurrent use.
type Store interface {
	// Upsert inserts or updates records keyed by tweet_id, returning
	// the number of rows written. Re-saving keeps the original
	// saved_at, tags and notes.
	Upsert(ctx context.Context, items []tweets.Tweet) (int, error)

	// List returns one page ordered by saved_at descending, plus
	// whether more pages exist.
	List(ctx context.Context, query ListQuery) ([]tweets.Tweet, bool, error)

	// GetByTweetID returns a single tweet or ErrNotFound.
	GetByTweetID(ctx context.Context, tweetID string) (*tweets.Tweet, error)

	// Close releases the underlying connections.
	Close() error
}

// New creates the backend selected by the DSN (sqlite:// or
// postgres://). An empty DSN yields (nil, nil): the store is disabled.
func New(ctx context.Context, dsn string) (Store, error) {
	parsed, err := config.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, nil
	}

	switch parsed.Backend {
	case "postgres":
		return NewPostgresStore(ctx, parsed.URL)
	case "sqlite":
		return NewSQLiteStore(parsed.Path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", parsed.Backend)
	}
}
