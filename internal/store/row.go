package store

import (
	"database/sql"

	"github.com/stashyhq/stashy/internal/json"
	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/tweets"
)

// tweetRow is the flat scan target shared by both backends. JSON-typed
// columns are carried as raw text and decoded in toTweet.
type tweetRow struct {
	id                int64
	tweetID           string
	tweetText         sql.NullString
	authorHandle      sql.NullString
	authorDisplayName sql.NullString
	authorAvatarURL   sql.NullString
	timestamp         sql.NullString
	sourceURL         sql.NullString
	media             string
	linkCards         string
	quotedTweetID     sql.NullString
	quotedTweet       sql.NullString
	inReplyToTweetID  sql.NullString
	conversationID    sql.NullString
	rawJSON           sql.NullString
	tags              string
	notes             sql.NullString
	savedAt           sql.NullString
	createdAt         sql.NullString
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	value := v.String
	return &value
}

func (r *tweetRow) toTweet() tweets.Tweet {
	record := tweets.Tweet{
		ID:                r.id,
		TweetID:           r.tweetID,
		TweetText:         nullable(r.tweetText),
		AuthorHandle:      nullable(r.authorHandle),
		AuthorDisplayName: nullable(r.authorDisplayName),
		AuthorAvatarURL:   nullable(r.authorAvatarURL),
		Timestamp:         nullable(r.timestamp),
		SourceURL:         nullable(r.sourceURL),
		Media:             []tweets.MediaItem{},
		LinkCards:         []tweets.LinkCard{},
		QuotedTweetID:     nullable(r.quotedTweetID),
		InReplyToTweetID:  nullable(r.inReplyToTweetID),
		ConversationID:    nullable(r.conversationID),
		Tags:              []string{},
		Notes:             nullable(r.notes),
		SavedAt:           nullable(r.savedAt),
		CreatedAt:         nullable(r.createdAt),
	}

	// Malformed JSON columns degrade to empty defaults rather than
	// failing the whole page.
	if r.media != "" {
		if err := json.UnmarshalString(r.media, &record.Media); err != nil {
			log.Warnf("tweet %s: bad media column: %v", r.tweetID, err)
		}
	}
	if r.linkCards != "" {
		if err := json.UnmarshalString(r.linkCards, &record.LinkCards); err != nil {
			log.Warnf("tweet %s: bad link_cards column: %v", r.tweetID, err)
		}
	}
	if r.tags != "" {
		if err := json.UnmarshalString(r.tags, &record.Tags); err != nil {
			log.Warnf("tweet %s: bad tags column: %v", r.tweetID, err)
		}
	}
	if r.quotedTweet.Valid && r.quotedTweet.String != "" {
		quoted := &tweets.QuotedTweet{}
		if err := json.UnmarshalString(r.quotedTweet.String, quoted); err == nil {
			record.QuotedTweet = quoted
		}
	}
	if r.rawJSON.Valid && r.rawJSON.String != "" {
		raw := map[string]any{}
		if err := json.UnmarshalString(r.rawJSON.String, &raw); err == nil {
			record.RawJSON = raw
		}
	}
	return record
}

// encoded JSON column values for writes.
type tweetColumns struct {
	media       string
	linkCards   string
	quotedTweet *string
	rawJSON     *string
	tags        string
}

func encodeColumns(item tweets.Tweet) (tweetColumns, error) {
	cols := tweetColumns{}

	media := item.Media
	if media == nil {
		media = []tweets.MediaItem{}
	}
	encoded, err := json.MarshalString(media)
	if err != nil {
		return cols, err
	}
	cols.media = encoded

	cards := item.LinkCards
	if cards == nil {
		cards = []tweets.LinkCard{}
	}
	if cols.linkCards, err = json.MarshalString(cards); err != nil {
		return cols, err
	}

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	if cols.tags, err = json.MarshalString(tags); err != nil {
		return cols, err
	}

	if item.QuotedTweet != nil {
		quoted, errQuoted := json.MarshalString(item.QuotedTweet)
		if errQuoted != nil {
			return cols, errQuoted
		}
		cols.quotedTweet = &quoted
	}
	if item.RawJSON != nil {
		raw, errRaw := json.MarshalString(item.RawJSON)
		if errRaw != nil {
			return cols, errRaw
		}
		cols.rawJSON = &raw
	}
	return cols, nil
}
