package xauth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/stashyhq/stashy/internal/tweets"
)

// Provider-side bookmark graph: flat tweet array plus includes
// side-tables keyed by id / media key.

type apiPublicMetrics struct {
	LikeCount       int  `json:"like_count"`
	RetweetCount    int  `json:"retweet_count"`
	ReplyCount      int  `json:"reply_count"`
	BookmarkCount   int  `json:"bookmark_count"`
	ImpressionCount *int `json:"impression_count,omitempty"`
}

type apiUser struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Username        string `json:"username,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

type apiMedia struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type,omitempty"`
	URL             string `json:"url,omitempty"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

type apiURLEntity struct {
	URL         string `json:"url,omitempty"`
	ExpandedURL string `json:"expanded_url,omitempty"`
	DisplayURL  string `json:"display_url,omitempty"`
}

type apiReferencedTweet struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type apiTweet struct {
	ID            string            `json:"id"`
	Text          string            `json:"text,omitempty"`
	AuthorID      string            `json:"author_id,omitempty"`
	CreatedAt     string            `json:"created_at,omitempty"`
	PublicMetrics *apiPublicMetrics `json:"public_metrics,omitempty"`
	Entities      *struct {
		URLs []apiURLEntity `json:"urls,omitempty"`
	} `json:"entities,omitempty"`
	Attachments *struct {
		MediaKeys []string `json:"media_keys,omitempty"`
	} `json:"attachments,omitempty"`
	ReferencedTweets []apiReferencedTweet `json:"referenced_tweets,omitempty"`
	InReplyToUserID  string               `json:"in_reply_to_user_id,omitempty"`
	ConversationID   string               `json:"conversation_id,omitempty"`
}

// surrogateID derives a stable negative list key from the provider's
// string tweet id: a 32-bit string hash, forced negative so it can
// never collide with the store's sequential positive row ids.
func surrogateID(id string) int64 {
	var hash int32
	for _, r := range id {
		hash = hash<<5 - hash + int32(r)
	}
	value := int64(hash)
	if value == 0 {
		value = 1
	}
	if value < 0 {
		value = -value
	}
	return -value
}

func toDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// isProviderURL reports whether the URL points into the provider's own
// domain family: the apex domains, their subdomains and the short-link
// host. Those never become link cards.
func isProviderURL(raw string) bool {
	domain := toDomain(raw)
	return domain == "x.com" || strings.HasSuffix(domain, ".x.com") ||
		domain == "twitter.com" || strings.HasSuffix(domain, ".twitter.com") ||
		domain == "t.co"
}

func statusURL(handle, tweetID string) string {
	if handle != "" {
		return fmt.Sprintf("https://x.com/%s/status/%s", handle, tweetID)
	}
	return fmt.Sprintf("https://x.com/i/status/%s", tweetID)
}

func mapMedia(mediaKeys []string, mediaByKey map[string]apiMedia) []tweets.MediaItem {
	if len(mediaKeys) == 0 {
		return []tweets.MediaItem{}
	}

	items := make([]tweets.MediaItem, 0, len(mediaKeys))
	for _, key := range mediaKeys {
		media, ok := mediaByKey[key]
		if !ok {
			continue
		}

		mediaType := "video"
		switch media.Type {
		case "photo":
			mediaType = "image"
		case "animated_gif":
			mediaType = "gif"
		}

		mediaURL := media.URL
		if mediaURL == "" {
			mediaURL = media.PreviewImageURL
		}
		if mediaURL == "" {
			continue
		}
		items = append(items, tweets.MediaItem{Type: mediaType, URL: mediaURL})
	}
	return items
}

func mapLinkCards(tweet apiTweet) []tweets.LinkCard {
	cards := []tweets.LinkCard{}
	if tweet.Entities == nil {
		return cards
	}

	for _, entry := range tweet.Entities.URLs {
		target := entry.ExpandedURL
		if target == "" {
			target = entry.URL
		}
		if target == "" || isProviderURL(target) {
			continue
		}

		title := entry.DisplayURL
		if title == "" {
			title = target
		}
		cards = append(cards, tweets.LinkCard{
			URL:      target,
			Title:    title,
			SiteName: toDomain(target),
		})
	}
	return cards
}

func mapPublicMetrics(metrics *apiPublicMetrics) *tweets.PublicMetrics {
	if metrics == nil {
		return nil
	}
	return &tweets.PublicMetrics{
		LikeCount:       metrics.LikeCount,
		RetweetCount:    metrics.RetweetCount,
		ReplyCount:      metrics.ReplyCount,
		BookmarkCount:   metrics.BookmarkCount,
		ImpressionCount: metrics.ImpressionCount,
	}
}

func mapQuotedTweet(ref *apiReferencedTweet, quotedByID map[string]apiTweet, usersByID map[string]apiUser, mediaByKey map[string]apiMedia) *tweets.QuotedTweet {
	if ref == nil || ref.Type != "quoted" {
		return nil
	}
	quoted, ok := quotedByID[ref.ID]
	if !ok {
		// Reference outside the includes bundle: unavailable, not an
		// error.
		return nil
	}

	author := usersByID[quoted.AuthorID]
	handle := author.Username

	result := &tweets.QuotedTweet{
		TweetID:           quoted.ID,
		TweetText:         quoted.Text,
		AuthorHandle:      "unknown",
		AuthorDisplayName: "Unknown",
		AuthorAvatarURL:   author.ProfileImageURL,
		SourceURL:         statusURL(handle, quoted.ID),
	}
	if handle != "" {
		result.AuthorHandle = handle
	}
	if author.Name != "" {
		result.AuthorDisplayName = author.Name
	}
	if quoted.CreatedAt != "" {
		created := quoted.CreatedAt
		result.Timestamp = &created
	}
	var mediaKeys []string
	if quoted.Attachments != nil {
		mediaKeys = quoted.Attachments.MediaKeys
	}
	result.Media = mapMedia(mediaKeys, mediaByKey)
	return result
}

type apiIncludes struct {
	Users []apiUser  `json:"users,omitempty"`
	Media []apiMedia `json:"media,omitempty"`
	// Tweets holds ancillary tweets referenced by quotes.
	Tweets []apiTweet `json:"tweets,omitempty"`
}

// mapBookmarks transforms the provider bookmark graph into normalized
// tweet records, order preserved. Missing optional data degrades to
// empty defaults; nothing here fails.
func mapBookmarks(data []apiTweet, includes apiIncludes) []tweets.Tweet {
	usersByID := make(map[string]apiUser, len(includes.Users))
	for _, user := range includes.Users {
		usersByID[user.ID] = user
	}
	mediaByKey := make(map[string]apiMedia, len(includes.Media))
	for _, media := range includes.Media {
		mediaByKey[media.MediaKey] = media
	}
	quotedByID := make(map[string]apiTweet, len(includes.Tweets))
	for _, tweet := range includes.Tweets {
		quotedByID[tweet.ID] = tweet
	}

	mapped := make([]tweets.Tweet, 0, len(data))
	for _, tweet := range data {
		author, hasAuthor := usersByID[tweet.AuthorID]

		var quotedRef *apiReferencedTweet
		for i := range tweet.ReferencedTweets {
			if tweet.ReferencedTweets[i].Type == "quoted" {
				quotedRef = &tweet.ReferencedTweets[i]
				break
			}
		}

		record := tweets.Tweet{
			ID:      surrogateID(tweet.ID),
			TweetID: tweet.ID,
			Media:   nil,
			Tags:    []string{},
		}
		if tweet.Text != "" {
			text := tweet.Text
			record.TweetText = &text
		}
		handle := ""
		if hasAuthor {
			if author.Username != "" {
				handle = author.Username
				record.AuthorHandle = &author.Username
			}
			if author.Name != "" {
				record.AuthorDisplayName = &author.Name
			}
			if author.ProfileImageURL != "" {
				record.AuthorAvatarURL = &author.ProfileImageURL
			}
		}
		if tweet.CreatedAt != "" {
			created := tweet.CreatedAt
			record.Timestamp = &created
		}
		source := statusURL(handle, tweet.ID)
		record.SourceURL = &source

		var mediaKeys []string
		if tweet.Attachments != nil {
			mediaKeys = tweet.Attachments.MediaKeys
		}
		record.Media = mapMedia(mediaKeys, mediaByKey)
		record.LinkCards = mapLinkCards(tweet)

		if quotedRef != nil {
			quotedID := quotedRef.ID
			record.QuotedTweetID = &quotedID
		}
		record.QuotedTweet = mapQuotedTweet(quotedRef, quotedByID, usersByID, mediaByKey)

		// Parity with the original viewer: the reply link is populated
		// from in_reply_to_user_id, which names a user, not a tweet.
		if tweet.InReplyToUserID != "" {
			reply := tweet.InReplyToUserID
			record.InReplyToTweetID = &reply
		}
		if tweet.ConversationID != "" {
			conversation := tweet.ConversationID
			record.ConversationID = &conversation
		}
		record.PublicMetrics = mapPublicMetrics(tweet.PublicMetrics)

		mapped = append(mapped, record)
	}
	return mapped
}
