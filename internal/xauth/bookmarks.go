package xauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/stashyhq/stashy/internal/json"
	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/tweets"
)

// BookmarkPage is one page of normalized bookmark tweets. NextToken is
// nil when no further pages exist.
type BookmarkPage struct {
	Tweets    []tweets.Tweet `json:"tweets"`
	NextToken *string        `json:"next_token"`
}

// Fixed request shape for the bookmarks endpoint. Page size, fields and
// expansions are not configurable.
const bookmarkPageSize = "20"

var bookmarkQuery = url.Values{
	"tweet.fields": {"created_at,public_metrics,entities,in_reply_to_user_id,conversation_id,referenced_tweets,attachments"},
	"expansions":   {"author_id,attachments.media_keys,referenced_tweets.id,referenced_tweets.id.author_id"},
	"user.fields":  {"name,username,profile_image_url"},
	"media.fields": {"url,preview_image_url,type,width,height"},
	"max_results":  {bookmarkPageSize},
}

type bookmarkResponse struct {
	Data     []apiTweet  `json:"data"`
	Includes apiIncludes `json:"includes"`
	Meta     struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

// FetchBookmarks returns one page of bookmarks for the credential,
// transparently absorbing a single access-token expiry:
//
//	attempt -> on 401 refresh once -> retry once
//
// At most two bookmark calls and one refresh call leave this method per
// invocation. When a refresh happened, the returned credential is
// non-nil and the caller must persist it; the page alone does not imply
// new tokens. cursor is the opaque pagination token from a previous
// page, or empty for the first page.
func (c *Client) FetchBookmarks(ctx context.Context, cred Credential, cursor string) (*BookmarkPage, *Credential, error) {
	if cred.AccessToken == "" || cred.SubjectID == "" {
		return nil, nil, ErrUnauthenticated
	}

	refreshed := false
	// Local expiry is a conservative signal, not a provider verdict:
	// refresh proactively instead of burning the attempt on a known-bad
	// token.
	if cred.expired(c.now()) && cred.RefreshToken != "" {
		next, err := c.refreshCredential(ctx, cred)
		if err != nil {
			return nil, nil, refreshFailure(ctx, err)
		}
		cred = next
		refreshed = true
	}

	status, body, err := c.fetchBookmarkPage(ctx, cred, cursor)
	if err != nil {
		return nil, nil, err
	}

	if status == http.StatusUnauthorized {
		if refreshed {
			// Freshly minted token still rejected: account-level
			// problem, do not loop.
			return nil, nil, ErrUnauthorized
		}
		if cred.RefreshToken == "" {
			return nil, nil, ErrUnauthenticated
		}

		next, errRefresh := c.refreshCredential(ctx, cred)
		if errRefresh != nil {
			return nil, nil, refreshFailure(ctx, errRefresh)
		}
		cred = next
		refreshed = true

		status, body, err = c.fetchBookmarkPage(ctx, cred, cursor)
		if err != nil {
			return nil, nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, nil, ErrUnauthorized
		}
	}

	if status < 200 || status >= 300 {
		logUpstreamFailure(status, body)
		return nil, nil, &UpstreamError{StatusCode: status, Body: string(body)}
	}

	payload := bookmarkResponse{}
	if errDecode := json.Unmarshal(body, &payload); errDecode != nil {
		return nil, nil, fmt.Errorf("failed to decode bookmarks response: %w", errDecode)
	}

	page := &BookmarkPage{Tweets: mapBookmarks(payload.Data, payload.Includes)}
	if payload.Meta.NextToken != "" {
		token := payload.Meta.NextToken
		page.NextToken = &token
	}

	if refreshed {
		persisted := cred
		return page, &persisted, nil
	}
	return page, nil, nil
}

// refreshFailure classifies a failed refresh: cancellation propagates
// as-is, a transport failure stays an UpstreamError, and a token
// endpoint denial means the credential is gone for good.
func refreshFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}
	return ErrUnauthenticated
}

// refreshCredential runs the refresh through a per-subject
// singleflight so concurrent fetches for one account issue a single
// refresh call within this process.
func (c *Client) refreshCredential(ctx context.Context, cred Credential) (Credential, error) {
	result, err, _ := c.refreshGroup.Do(cred.SubjectID, func() (any, error) {
		tok, errRefresh := c.Refresh(ctx, cred.RefreshToken)
		if errRefresh != nil {
			return Credential{}, errRefresh
		}
		return applyToken(cred, tok, c.now()), nil
	})
	if err != nil {
		return Credential{}, err
	}
	return result.(Credential), nil
}

func (c *Client) fetchBookmarkPage(ctx context.Context, cred Credential, cursor string) (int, []byte, error) {
	query := url.Values{}
	for key, values := range bookmarkQuery {
		query[key] = values
	}
	if cursor != "" {
		query.Set("pagination_token", cursor)
	}

	endpoint := fmt.Sprintf("%s/2/users/%s/bookmarks?%s", c.apiBaseURL(), url.PathEscape(cred.SubjectID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, &UpstreamError{Body: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, &UpstreamError{Body: err.Error()}
	}
	return resp.StatusCode, body, nil
}

func logUpstreamFailure(status int, body []byte) {
	detail := gjson.GetBytes(body, "detail").String()
	if detail == "" {
		detail = gjson.GetBytes(body, "title").String()
	}
	log.Warnf("bookmarks fetch failed: status %d, detail: %s", status, detail)
}
