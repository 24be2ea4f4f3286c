package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/stashyhq/stashy/internal/config"
	"github.com/stashyhq/stashy/internal/json"
	"github.com/stashyhq/stashy/internal/reader"
	"github.com/stashyhq/stashy/internal/store"
	"github.com/stashyhq/stashy/internal/tweets"
	"github.com/stashyhq/stashy/internal/xauth"
)

// fakeX serves the subset of the X API the server touches.
type fakeX struct {
	server *httptest.Server

	bookmarkStatus int
	bookmarkBody   string
	refreshBody    string
}

func newFakeX(t *testing.T) *fakeX {
	f := &fakeX{
		bookmarkStatus: http.StatusOK,
		bookmarkBody:   `{"data":[{"id":"100","text":"hi","author_id":"u1"}],"includes":{"users":[{"id":"u1","username":"alice"}]},"meta":{}}`,
		refreshBody:    `{"access_token":"fresh-access","expires_in":3600}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/2/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		// oauth2.Config.Exchange falls back to form-encoded parsing
		// when the response is not declared as JSON.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.refreshBody))
	})
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"u1","name":"Alice","username":"alice"}}`))
	})
	mux.HandleFunc("/2/users/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.bookmarkStatus)
		if f.bookmarkStatus == http.StatusOK {
			_, _ = w.Write([]byte(f.bookmarkBody))
		} else {
			_, _ = w.Write([]byte(`{"title":"Unauthorized"}`))
		}
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestServer(t *testing.T, fake *fakeX, st store.Store) *Server {
	t.Helper()
	cfg := &config.Config{
		X: config.XConfig{
			ClientID:    "client-1",
			CallbackURL: "https://app.example/api/auth/x/callback",
		},
	}
	cfg.Reader.UserAgent = "StashyBot-test"
	cfg.Reader.RequestsPerMinute = 600
	if fake != nil {
		cfg.X.AuthURL = fake.server.URL + "/authorize"
		cfg.X.TokenURL = fake.server.URL + "/2/oauth2/token"
		cfg.X.APIBaseURL = fake.server.URL
	}

	var httpClient *http.Client
	if fake != nil {
		httpClient = fake.server.Client()
	}
	return NewServer(Options{
		Config: cfg,
		XAuth:  xauth.NewClient(xauth.Config{
			ClientID:    cfg.X.ClientID,
			CallbackURL: cfg.X.CallbackURL,
			AuthURL:     cfg.X.AuthURL,
			TokenURL:    cfg.X.TokenURL,
			APIBaseURL:  cfg.X.APIBaseURL,
		}, httpClient),
		Store:  st,
		Reader: reader.New(cfg.Reader.UserAgent, httpClient),
	})
}

func withCredentialCookies(req *http.Request, expiresAt int64) {
	req.AddCookie(&http.Cookie{Name: xauth.SecretAccessToken, Value: "good-access"})
	req.AddCookie(&http.Cookie{Name: xauth.SecretRefreshToken, Value: "refresh-1"})
	req.AddCookie(&http.Cookie{Name: xauth.SecretSubjectID, Value: "u1"})
	req.AddCookie(&http.Cookie{Name: xauth.SecretHandle, Value: "alice"})
	req.AddCookie(&http.Cookie{Name: xauth.SecretExpiresAt, Value: strconv.FormatInt(expiresAt, 10)})
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestStatusNotConnected(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/x/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := struct {
		Connected bool    `json:"connected"`
		Handle    *string `json:"handle"`
	}{}
	decodeBody(t, w, &body)
	if body.Connected || body.Handle != nil {
		t.Errorf("body = %+v, want disconnected with nil handle", body)
	}
}

func TestStatusConnected(t *testing.T) {
	s := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/x/status", nil)
	withCredentialCookies(req, time.Now().Add(time.Hour).UnixMilli())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	body := struct {
		Connected bool    `json:"connected"`
		Handle    *string `json:"handle"`
	}{}
	decodeBody(t, w, &body)
	if !body.Connected || body.Handle == nil || *body.Handle != "alice" {
		t.Errorf("body = %+v, want connected as alice", body)
	}
}

func TestStatusExpiredIsDisconnected(t *testing.T) {
	s := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/x/status", nil)
	withCredentialCookies(req, time.Now().Add(-time.Hour).UnixMilli())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	body := struct {
		Connected bool `json:"connected"`
	}{}
	decodeBody(t, w, &body)
	if body.Connected {
		t.Error("expired credential reported connected")
	}
}

func TestConnectRedirectsAndSetsTransientSecrets(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/x", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	location := w.Header().Get("Location")
	for _, fragment := range []string{"code_challenge=", "code_challenge_method=S256", "state=", "client_id=client-1"} {
		if !strings.Contains(location, fragment) {
			t.Errorf("redirect missing %q: %s", fragment, location)
		}
	}

	cookies := w.Result().Cookies()
	found := map[string]*http.Cookie{}
	for _, cookie := range cookies {
		found[cookie.Name] = cookie
	}
	for _, name := range []string{xauth.SecretOAuthVerifier, xauth.SecretOAuthState} {
		cookie, ok := found[name]
		if !ok {
			t.Fatalf("cookie %s not set", name)
		}
		if !cookie.HttpOnly {
			t.Errorf("cookie %s is not http-only", name)
		}
		if cookie.MaxAge != xauth.TransientSecretTTL {
			t.Errorf("cookie %s max-age = %d, want %d", name, cookie.MaxAge, xauth.TransientSecretTTL)
		}
		if cookie.SameSite != http.SameSiteLaxMode {
			t.Errorf("cookie %s same-site = %v, want lax", name, cookie.SameSite)
		}
	}
}

func TestConnectWithoutConfigIsConfigurationError(t *testing.T) {
	cfg := &config.Config{}
	cfg.Reader.RequestsPerMinute = 60
	s := NewServer(Options{
		Config: cfg,
		XAuth:  xauth.NewClient(xauth.Config{}, nil),
		Reader: reader.New("test", nil),
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/x", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "TWITTER_CLIENT_ID") {
		t.Errorf("body = %s, want the missing variable named", w.Body.String())
	}
}

func TestDisconnectClearsAndIsIdempotent(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/x/disconnect", nil)
		if i == 0 {
			withCredentialCookies(req, time.Now().Add(time.Hour).UnixMilli())
		}
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusTemporaryRedirect {
			t.Fatalf("attempt %d: status = %d, want 307", i, w.Code)
		}
		cleared := 0
		for _, cookie := range w.Result().Cookies() {
			if cookie.MaxAge < 0 && cookie.Value == "" {
				cleared++
			}
		}
		if cleared != 7 {
			t.Errorf("attempt %d: cleared %d cookies, want all 7", i, cleared)
		}
	}
}

func TestCallbackStateMismatch(t *testing.T) {
	fake := newFakeX(t)
	s := newTestServer(t, fake, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/x/callback?code=abc&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: xauth.SecretOAuthState, Value: "expected"})
	req.AddCookie(&http.Cookie{Name: xauth.SecretOAuthVerifier, Value: "verifier"})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on forged state", w.Code)
	}
}

func TestCallbackHappyPath(t *testing.T) {
	fake := newFakeX(t)
	s := newTestServer(t, fake, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/x/callback?code=abc&state=expected", nil)
	req.AddCookie(&http.Cookie{Name: xauth.SecretOAuthState, Value: "expected"})
	req.AddCookie(&http.Cookie{Name: xauth.SecretOAuthVerifier, Value: "verifier"})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307, body = %s", w.Code, w.Body.String())
	}

	persisted := map[string]string{}
	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge > 0 {
			persisted[cookie.Name] = cookie.Value
		}
	}
	if persisted[xauth.SecretAccessToken] != "fresh-access" {
		t.Errorf("access token cookie = %q", persisted[xauth.SecretAccessToken])
	}
	if persisted[xauth.SecretSubjectID] != "u1" || persisted[xauth.SecretHandle] != "alice" {
		t.Errorf("identity cookies = %v", persisted)
	}
}

func TestBookmarksHappyPath(t *testing.T) {
	fake := newFakeX(t)
	s := newTestServer(t, fake, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/x/bookmarks", nil)
	withCredentialCookies(req, time.Now().Add(time.Hour).UnixMilli())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := struct {
		Tweets    []tweets.Tweet `json:"tweets"`
		NextToken *string        `json:"next_token"`
	}{}
	decodeBody(t, w, &body)
	if len(body.Tweets) != 1 || body.Tweets[0].TweetID != "100" {
		t.Errorf("tweets = %+v", body.Tweets)
	}
	if body.NextToken != nil {
		t.Errorf("next_token = %v, want null", body.NextToken)
	}
}

func TestBookmarksWithoutCredentialIs401(t *testing.T) {
	fake := newFakeX(t)
	s := newTestServer(t, fake, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/x/bookmarks", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestBookmarksPersistentlyRejectedIs401(t *testing.T) {
	fake := newFakeX(t)
	fake.bookmarkStatus = http.StatusUnauthorized
	s := newTestServer(t, fake, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/x/bookmarks", nil)
	withCredentialCookies(req, time.Now().Add(time.Hour).UnixMilli())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "revoked") {
		t.Errorf("body = %s, want revoked-connection message", w.Body.String())
	}
}

func TestBookmarksUpstreamFailureIs502(t *testing.T) {
	fake := newFakeX(t)
	fake.bookmarkStatus = http.StatusInternalServerError
	s := newTestServer(t, fake, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/x/bookmarks", nil)
	withCredentialCookies(req, time.Now().Add(time.Hour).UnixMilli())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestSyncPersistsBookmarks(t *testing.T) {
	fake := newFakeX(t)
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	s := newTestServer(t, fake, st)

	req := httptest.NewRequest(http.MethodPost, "/api/x/sync", nil)
	withCredentialCookies(req, time.Now().Add(time.Hour).UnixMilli())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := struct {
		Saved int `json:"saved"`
	}{}
	decodeBody(t, w, &body)
	if body.Saved != 1 {
		t.Errorf("saved = %d, want 1", body.Saved)
	}

	record, err := st.GetByTweetID(context.Background(), "100")
	if err != nil {
		t.Fatalf("GetByTweetID after sync: %v", err)
	}
	if record.AuthorHandle == nil || *record.AuthorHandle != "alice" {
		t.Errorf("persisted tweet = %+v", record)
	}
}

func TestListTweetsWithoutStore(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tweets", nil))

	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501 when no store configured", w.Code)
	}
}

func TestApplyConfigUpdatesReadLimiter(t *testing.T) {
	s := newTestServer(t, nil, nil)

	next := &config.Config{}
	next.Reader.RequestsPerMinute = 120
	s.ApplyConfig(next)

	if s.readLimiter.Limit() != rate.Limit(2) {
		t.Errorf("limit = %v, want 2 req/s", s.readLimiter.Limit())
	}
	if s.readLimiter.Burst() != 120 {
		t.Errorf("burst = %d, want 120", s.readLimiter.Burst())
	}
}

func TestReadArticleInvalidURL(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/read-article?url=ftp://nope", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
