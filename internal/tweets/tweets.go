// Package tweets defines the normalized tweet records the viewer reads,
// independent of where they came from (persisted store or live X
// bookmarks).
package tweets

// MediaItem is one attached media entry on a tweet.
type MediaItem struct {
	// Type is "image", "video" or "gif".
	Type string `json:"type"`
	URL  string `json:"url"`
}

// LinkCard is an external-link preview extracted from a tweet's URL
// entities. Description and Image are filled lazily by enrichment and
// may be empty.
type LinkCard struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"site_name"`
}

// QuotedTweet is the resolved content of a quoted tweet, embedded in
// the quoting record.
type QuotedTweet struct {
	TweetID           string      `json:"tweet_id"`
	TweetText         string      `json:"tweet_text"`
	AuthorHandle      string      `json:"author_handle"`
	AuthorDisplayName string      `json:"author_display_name"`
	AuthorAvatarURL   string      `json:"author_avatar_url"`
	Timestamp         *string     `json:"timestamp"`
	SourceURL         string      `json:"source_url"`
	Media             []MediaItem `json:"media"`
}

// PublicMetrics carries the provider's engagement counters.
type PublicMetrics struct {
	LikeCount       int  `json:"like_count"`
	RetweetCount    int  `json:"retweet_count"`
	ReplyCount      int  `json:"reply_count"`
	BookmarkCount   int  `json:"bookmark_count"`
	ImpressionCount *int `json:"impression_count,omitempty"`
}

// Tweet is one normalized tweet record.
//
// ID is a surrogate used only as a list-rendering key: persisted rows
// carry sequential positive ids, live bookmark rows carry negative
// hash-derived ids, so the two ranges never collide.
type Tweet struct {
	ID                int64          `json:"id"`
	TweetID           string         `json:"tweet_id"`
	TweetText         *string        `json:"tweet_text"`
	AuthorHandle      *string        `json:"author_handle"`
	AuthorDisplayName *string        `json:"author_display_name"`
	AuthorAvatarURL   *string        `json:"author_avatar_url"`
	Timestamp         *string        `json:"timestamp"`
	SourceURL         *string        `json:"source_url"`
	Media             []MediaItem    `json:"media"`
	LinkCards         []LinkCard     `json:"link_cards"`
	QuotedTweetID     *string        `json:"quoted_tweet_id"`
	QuotedTweet       *QuotedTweet   `json:"quoted_tweet"`
	InReplyToTweetID  *string        `json:"in_reply_to_tweet_id"`
	ConversationID    *string        `json:"conversation_id"`
	RawJSON           map[string]any `json:"raw_json"`
	Tags              []string       `json:"tags"`
	Notes             *string        `json:"notes"`
	SavedAt           *string        `json:"saved_at"`
	CreatedAt         *string        `json:"created_at"`
	PublicMetrics     *PublicMetrics `json:"public_metrics,omitempty"`
}
