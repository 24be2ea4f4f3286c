package xauth

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/stashyhq/stashy/internal/json"
)

// User identifies the connected account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// FetchUser resolves the account behind an access token via the
// provider's user-info endpoint. Used once per connect, right after the
// code exchange.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL()+"/2/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user lookup request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	payload := struct {
		Data User `json:"data"`
	}{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	if payload.Data.ID == "" {
		return nil, fmt.Errorf("user response carried no id")
	}
	return &payload.Data, nil
}
