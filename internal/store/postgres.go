package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stashyhq/stashy/internal/tweets"
)

// PostgresStore implements Store on PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tweets (
	id BIGSERIAL PRIMARY KEY,
	tweet_id TEXT NOT NULL UNIQUE,
	tweet_text TEXT,
	author_handle TEXT,
	author_display_name TEXT,
	author_avatar_url TEXT,
	timestamp TEXT,
	source_url TEXT,
	media JSONB NOT NULL DEFAULT '[]',
	link_cards JSONB NOT NULL DEFAULT '[]',
	quoted_tweet_id TEXT,
	quoted_tweet JSONB,
	in_reply_to_tweet_id TEXT,
	conversation_id TEXT,
	raw_json JSONB,
	tags JSONB NOT NULL DEFAULT '[]',
	notes TEXT,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tweets_saved_at ON tweets(saved_at);
CREATE INDEX IF NOT EXISTS idx_tweets_author_handle ON tweets(author_handle);
CREATE INDEX IF NOT EXISTS idx_tweets_tags ON tweets USING GIN (tags);
`

// NewPostgresStore connects to the database, verifies the connection
// and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(connectCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, items []tweets.Tweet) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, item := range items {
		if item.TweetID == "" {
			continue
		}
		cols, err := encodeColumns(item)
		if err != nil {
			return 0, err
		}
		batch.Queue(`
			INSERT INTO tweets (
				tweet_id, tweet_text, author_handle, author_display_name, author_avatar_url,
				timestamp, source_url, media, link_cards, quoted_tweet_id, quoted_tweet,
				in_reply_to_tweet_id, conversation_id, raw_json, tags, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (tweet_id) DO UPDATE SET
				tweet_text = EXCLUDED.tweet_text,
				author_handle = EXCLUDED.author_handle,
				author_display_name = EXCLUDED.author_display_name,
				author_avatar_url = EXCLUDED.author_avatar_url,
				timestamp = EXCLUDED.timestamp,
				source_url = EXCLUDED.source_url,
				media = EXCLUDED.media,
				link_cards = EXCLUDED.link_cards,
				quoted_tweet_id = EXCLUDED.quoted_tweet_id,
				quoted_tweet = EXCLUDED.quoted_tweet,
				in_reply_to_tweet_id = EXCLUDED.in_reply_to_tweet_id,
				conversation_id = EXCLUDED.conversation_id,
				raw_json = EXCLUDED.raw_json`,
			item.TweetID, item.TweetText, item.AuthorHandle, item.AuthorDisplayName,
			item.AuthorAvatarURL, item.Timestamp, item.SourceURL, cols.media, cols.linkCards,
			item.QuotedTweetID, cols.quotedTweet, item.InReplyToTweetID, item.ConversationID,
			cols.rawJSON, cols.tags, item.Notes,
		)
		queued++
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for i := 0; i < queued; i++ {
		if _, err := results.Exec(); err != nil {
			return i, err
		}
	}
	return queued, nil
}

func (s *PostgresStore) List(ctx context.Context, query ListQuery) ([]tweets.Tweet, bool, error) {
	where := []string{"TRUE"}
	args := []any{}

	if term := strings.TrimSpace(query.Search); term != "" {
		pattern := "%" + term + "%"
		args = append(args, pattern)
		where = append(where, fmt.Sprintf("(tweet_text ILIKE $%d OR author_handle ILIKE $%d)", len(args), len(args)))
	}
	if len(query.Tags) > 0 {
		args = append(args, query.Tags)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(tweets.tags) tag WHERE tag = ANY($%d))", len(args)))
	}

	page := query.Page
	if page < 0 {
		page = 0
	}
	args = append(args, PageSize, page*PageSize)

	sqlQuery := fmt.Sprintf(`
		SELECT %s FROM tweets
		WHERE %s
		ORDER BY saved_at DESC NULLS LAST
		LIMIT $%d OFFSET $%d`,
		postgresColumnsSQL, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	results := []tweets.Tweet{}
	for rows.Next() {
		record, errScan := scanTweetRow(rows)
		if errScan != nil {
			return nil, false, errScan
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return results, len(results) == PageSize, nil
}

// Postgres renders JSONB columns as text for the shared scan path, and
// timestamps as RFC 3339 strings.
const postgresColumnsSQL = `id, tweet_id, tweet_text, author_handle, author_display_name,
	author_avatar_url, timestamp, source_url, media::text, link_cards::text, quoted_tweet_id,
	quoted_tweet::text, in_reply_to_tweet_id, conversation_id, raw_json::text, tags::text, notes,
	to_char(saved_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`

func (s *PostgresStore) GetByTweetID(ctx context.Context, tweetID string) (*tweets.Tweet, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM tweets WHERE tweet_id = $1", postgresColumnsSQL), tweetID)
	record, err := scanTweetRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
