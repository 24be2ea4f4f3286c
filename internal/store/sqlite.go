package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/stashyhq/stashy/internal/tweets"
)

// SQLiteStore implements Store on a local sqlite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tweets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tweet_id TEXT NOT NULL UNIQUE,
	tweet_text TEXT,
	author_handle TEXT,
	author_display_name TEXT,
	author_avatar_url TEXT,
	timestamp TEXT,
	source_url TEXT,
	media TEXT NOT NULL DEFAULT '[]',
	link_cards TEXT NOT NULL DEFAULT '[]',
	quoted_tweet_id TEXT,
	quoted_tweet TEXT,
	in_reply_to_tweet_id TEXT,
	conversation_id TEXT,
	raw_json TEXT,
	tags TEXT NOT NULL DEFAULT '[]',
	notes TEXT,
	saved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tweets_saved_at ON tweets(saved_at);
CREATE INDEX IF NOT EXISTS idx_tweets_author_handle ON tweets(author_handle);
`

// NewSQLiteStore opens (creating if needed) the sqlite database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

const tweetColumnsSQL = `id, tweet_id, tweet_text, author_handle, author_display_name,
	author_avatar_url, timestamp, source_url, media, link_cards, quoted_tweet_id,
	quoted_tweet, in_reply_to_tweet_id, conversation_id, raw_json, tags, notes,
	saved_at, created_at`

func scanTweetRow(scanner interface{ Scan(...any) error }) (tweets.Tweet, error) {
	row := tweetRow{}
	err := scanner.Scan(
		&row.id, &row.tweetID, &row.tweetText, &row.authorHandle, &row.authorDisplayName,
		&row.authorAvatarURL, &row.timestamp, &row.sourceURL, &row.media, &row.linkCards,
		&row.quotedTweetID, &row.quotedTweet, &row.inReplyToTweetID, &row.conversationID,
		&row.rawJSON, &row.tags, &row.notes, &row.savedAt, &row.createdAt,
	)
	if err != nil {
		return tweets.Tweet{}, err
	}
	return row.toTweet(), nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, items []tweets.Tweet) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tweets (
			tweet_id, tweet_text, author_handle, author_display_name, author_avatar_url,
			timestamp, source_url, media, link_cards, quoted_tweet_id, quoted_tweet,
			in_reply_to_tweet_id, conversation_id, raw_json, tags, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tweet_id) DO UPDATE SET
			tweet_text = excluded.tweet_text,
			author_handle = excluded.author_handle,
			author_display_name = excluded.author_display_name,
			author_avatar_url = excluded.author_avatar_url,
			timestamp = excluded.timestamp,
			source_url = excluded.source_url,
			media = excluded.media,
			link_cards = excluded.link_cards,
			quoted_tweet_id = excluded.quoted_tweet_id,
			quoted_tweet = excluded.quoted_tweet,
			in_reply_to_tweet_id = excluded.in_reply_to_tweet_id,
			conversation_id = excluded.conversation_id,
			raw_json = excluded.raw_json`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	written := 0
	for _, item := range items {
		if item.TweetID == "" {
			continue
		}
		cols, errEncode := encodeColumns(item)
		if errEncode != nil {
			return written, errEncode
		}
		_, errExec := stmt.ExecContext(ctx,
			item.TweetID, item.TweetText, item.AuthorHandle, item.AuthorDisplayName,
			item.AuthorAvatarURL, item.Timestamp, item.SourceURL, cols.media, cols.linkCards,
			item.QuotedTweetID, cols.quotedTweet, item.InReplyToTweetID, item.ConversationID,
			cols.rawJSON, cols.tags, item.Notes,
		)
		if errExec != nil {
			return written, errExec
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

func (s *SQLiteStore) List(ctx context.Context, query ListQuery) ([]tweets.Tweet, bool, error) {
	where := []string{"1=1"}
	args := []any{}

	if term := strings.TrimSpace(query.Search); term != "" {
		where = append(where, "(tweet_text LIKE ? COLLATE NOCASE OR author_handle LIKE ? COLLATE NOCASE)")
		pattern := "%" + term + "%"
		args = append(args, pattern, pattern)
	}
	if len(query.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(query.Tags)), ",")
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tweets.tags) WHERE json_each.value IN ("+placeholders+"))")
		for _, tag := range query.Tags {
			args = append(args, tag)
		}
	}

	page := query.Page
	if page < 0 {
		page = 0
	}
	args = append(args, PageSize, page*PageSize)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM tweets
		WHERE %s
		ORDER BY saved_at IS NULL, saved_at DESC
		LIMIT ? OFFSET ?`, tweetColumnsSQL, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()

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

func (s *SQLiteStore) GetByTweetID(ctx context.Context, tweetID string) (*tweets.Tweet, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM tweets WHERE tweet_id = ?", tweetColumnsSQL), tweetID)
	record, err := scanTweetRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
