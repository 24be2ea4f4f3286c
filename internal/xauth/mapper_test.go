package xauth

import (
	"fmt"
	"testing"

	"github.com/stashyhq/stashy/internal/json"
)

func TestSurrogateIDDeterministicAndNegative(t *testing.T) {
	first := surrogateID("1234567890123456789")
	second := surrogateID("1234567890123456789")
	if first != second {
		t.Errorf("same input produced %d then %d", first, second)
	}
	if first >= 0 {
		t.Errorf("surrogate id = %d, want negative", first)
	}
	if surrogateID("") != -1 {
		t.Errorf("empty input = %d, want -1", surrogateID(""))
	}
}

func TestSurrogateIDCollisionsOverSample(t *testing.T) {
	seen := make(map[int64]string, 2000)
	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("17%017d", i)
		key := surrogateID(id)
		if prev, ok := seen[key]; ok {
			t.Fatalf("collision: %q and %q both hash to %d", prev, id, key)
		}
		seen[key] = id
	}
}

func TestMapBookmarksEndToEnd(t *testing.T) {
	data := []apiTweet{}
	if err := json.Unmarshal([]byte(`[{
		"id": "100",
		"text": "hello https://example.com",
		"author_id": "u1",
		"entities": {"urls": [{"expanded_url": "https://example.com", "display_url": "https://example.com"}]},
		"attachments": {"media_keys": ["m1"]}
	}]`), &data); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	includes := apiIncludes{
		Users: []apiUser{{ID: "u1", Username: "alice", Name: "Alice"}},
		Media: []apiMedia{{MediaKey: "m1", Type: "photo", URL: "https://img/1.jpg"}},
	}

	mapped := mapBookmarks(data, includes)
	if len(mapped) != 1 {
		t.Fatalf("mapped %d tweets, want 1", len(mapped))
	}
	got := mapped[0]

	if got.AuthorHandle == nil || *got.AuthorHandle != "alice" {
		t.Errorf("author_handle = %v, want alice", got.AuthorHandle)
	}
	if len(got.Media) != 1 || got.Media[0].Type != "image" || got.Media[0].URL != "https://img/1.jpg" {
		t.Errorf("media = %+v", got.Media)
	}
	if len(got.LinkCards) != 1 {
		t.Fatalf("link_cards = %+v", got.LinkCards)
	}
	card := got.LinkCards[0]
	if card.URL != "https://example.com" || card.Title != "https://example.com" || card.SiteName != "example.com" {
		t.Errorf("card = %+v", card)
	}
	if got.SourceURL == nil || *got.SourceURL != "https://x.com/alice/status/100" {
		t.Errorf("source_url = %v", got.SourceURL)
	}
	if got.ID >= 0 {
		t.Errorf("surrogate id = %d, want negative", got.ID)
	}
}

func TestMapBookmarksBareTweetIsSafe(t *testing.T) {
	mapped := mapBookmarks([]apiTweet{{ID: "42"}}, apiIncludes{})
	if len(mapped) != 1 {
		t.Fatalf("mapped %d tweets, want 1", len(mapped))
	}
	got := mapped[0]
	if len(got.Media) != 0 {
		t.Errorf("media = %+v, want empty", got.Media)
	}
	if len(got.LinkCards) != 0 {
		t.Errorf("link_cards = %+v, want empty", got.LinkCards)
	}
	if got.QuotedTweet != nil || got.QuotedTweetID != nil {
		t.Errorf("quoted fields = %v %v, want nil", got.QuotedTweetID, got.QuotedTweet)
	}
	if got.SourceURL == nil || *got.SourceURL != "https://x.com/i/status/42" {
		t.Errorf("source_url = %v, want anonymous status URL", got.SourceURL)
	}
}

func TestMapBookmarksMediaTypeMapping(t *testing.T) {
	includes := apiIncludes{Media: []apiMedia{
		{MediaKey: "m1", Type: "photo", URL: "https://img/p.jpg"},
		{MediaKey: "m2", Type: "animated_gif", PreviewImageURL: "https://img/g.jpg"},
		{MediaKey: "m3", Type: "video", PreviewImageURL: "https://img/v.jpg"},
		{MediaKey: "m4", Type: "photo"},
	}}
	tweet := apiTweet{ID: "1", Attachments: &struct {
		MediaKeys []string `json:"media_keys,omitempty"`
	}{MediaKeys: []string{"m1", "m2", "m3", "m4", "missing"}}}

	got := mapBookmarks([]apiTweet{tweet}, includes)[0].Media
	want := []struct{ typ, url string }{
		{"image", "https://img/p.jpg"},
		{"gif", "https://img/g.jpg"},
		{"video", "https://img/v.jpg"},
	}
	if len(got) != len(want) {
		t.Fatalf("media = %+v, want %d items (url-less and missing entries dropped)", got, len(want))
	}
	for i, item := range want {
		if got[i].Type != item.typ || got[i].URL != item.url {
			t.Errorf("media[%d] = %+v, want %+v", i, got[i], item)
		}
	}
}

func TestMapBookmarksFiltersProviderLinks(t *testing.T) {
	tweet := apiTweet{}
	if err := json.Unmarshal([]byte(`{
		"id": "1",
		"entities": {"urls": [
			{"expanded_url": "https://x.com/alice/status/5"},
			{"expanded_url": "https://mobile.twitter.com/bob"},
			{"url": "https://t.co/abc"},
			{"expanded_url": "https://blog.example.org/post", "display_url": "blog.example.org/post"}
		]}
	}`), &tweet); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	cards := mapBookmarks([]apiTweet{tweet}, apiIncludes{})[0].LinkCards
	if len(cards) != 1 {
		t.Fatalf("cards = %+v, want only the external link", cards)
	}
	if cards[0].URL != "https://blog.example.org/post" || cards[0].Title != "blog.example.org/post" || cards[0].SiteName != "blog.example.org" {
		t.Errorf("card = %+v", cards[0])
	}
}

func TestMapBookmarksQuotedTweetResolution(t *testing.T) {
	ref := []apiReferencedTweet{{ID: "9", Type: "quoted"}}
	quoting := apiTweet{ID: "1", AuthorID: "u1", ReferencedTweets: ref}
	includes := apiIncludes{
		Users:  []apiUser{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob", Name: "Bob"}},
		Tweets: []apiTweet{{ID: "9", Text: "quoted text", AuthorID: "u2"}},
	}

	got := mapBookmarks([]apiTweet{quoting}, includes)[0]
	if got.QuotedTweetID == nil || *got.QuotedTweetID != "9" {
		t.Fatalf("quoted_tweet_id = %v", got.QuotedTweetID)
	}
	if got.QuotedTweet == nil {
		t.Fatal("quoted tweet not resolved")
	}
	if got.QuotedTweet.AuthorHandle != "bob" || got.QuotedTweet.TweetText != "quoted text" {
		t.Errorf("quoted = %+v", got.QuotedTweet)
	}
	if got.QuotedTweet.SourceURL != "https://x.com/bob/status/9" {
		t.Errorf("quoted source_url = %q", got.QuotedTweet.SourceURL)
	}
}

func TestMapBookmarksQuotedTweetMissingFromIncludes(t *testing.T) {
	quoting := apiTweet{ID: "1", ReferencedTweets: []apiReferencedTweet{{ID: "9", Type: "quoted"}}}

	got := mapBookmarks([]apiTweet{quoting}, apiIncludes{})[0]
	if got.QuotedTweetID == nil || *got.QuotedTweetID != "9" {
		t.Errorf("quoted_tweet_id = %v, want recorded identifier", got.QuotedTweetID)
	}
	if got.QuotedTweet != nil {
		t.Errorf("quoted tweet = %+v, want unavailable (nil)", got.QuotedTweet)
	}
}

func TestMapBookmarksRepliesNotExpanded(t *testing.T) {
	tweet := apiTweet{
		ID:               "1",
		ReferencedTweets: []apiReferencedTweet{{ID: "7", Type: "replied_to"}},
		InReplyToUserID:  "u5",
	}
	includes := apiIncludes{Tweets: []apiTweet{{ID: "7", Text: "parent"}}}

	got := mapBookmarks([]apiTweet{tweet}, includes)[0]
	if got.QuotedTweet != nil || got.QuotedTweetID != nil {
		t.Errorf("reply reference expanded into quote: %v %v", got.QuotedTweetID, got.QuotedTweet)
	}
	if got.InReplyToTweetID == nil || *got.InReplyToTweetID != "u5" {
		t.Errorf("in_reply_to_tweet_id = %v, want u5 (parity with original mapping)", got.InReplyToTweetID)
	}
}

func TestMapBookmarksPreservesOrder(t *testing.T) {
	data := []apiTweet{{ID: "3"}, {ID: "1"}, {ID: "2"}}
	mapped := mapBookmarks(data, apiIncludes{})
	for i, want := range []string{"3", "1", "2"} {
		if mapped[i].TweetID != want {
			t.Errorf("mapped[%d] = %s, want %s", i, mapped[i].TweetID, want)
		}
	}
}
