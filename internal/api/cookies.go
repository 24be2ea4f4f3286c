package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stashyhq/stashy/internal/xauth"
)

// cookieStore implements xauth.SecretStore over the request's cookies:
// reads come from the incoming request, writes become http-only,
// same-site-lax Set-Cookie headers on the response. A ttl of zero (or
// an empty value) expires the cookie immediately.
type cookieStore struct {
	c      *gin.Context
	secure bool
}

var _ xauth.SecretStore = cookieStore{}

func (s cookieStore) Get(name string) (string, bool) {
	value, err := s.c.Cookie(name)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func (s cookieStore) Set(name, value string, ttlSeconds int) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	if value == "" || ttlSeconds <= 0 {
		s.c.SetCookie(name, "", -1, "/", "", s.secure, true)
		return
	}
	s.c.SetCookie(name, value, ttlSeconds, "/", "", s.secure, true)
}

func (s *Server) secrets(c *gin.Context) cookieStore {
	return cookieStore{c: c, secure: s.secureCookies}
}
