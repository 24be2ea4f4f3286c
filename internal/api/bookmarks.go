package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/xauth"
)

// handleBookmarks returns one page of live X bookmarks. A refresh
// performed by the access layer is persisted back to cookies before the
// page is written.
func (s *Server) handleBookmarks(c *gin.Context) {
	secrets := s.secrets(c)
	cred := xauth.LoadCredential(secrets)

	page, refreshed, err := s.x.FetchBookmarks(c.Request.Context(), cred, c.Query("cursor"))
	if err != nil {
		s.writeBookmarkError(c, err)
		return
	}
	if refreshed != nil {
		xauth.SaveCredential(secrets, *refreshed, time.Now())
	}

	c.JSON(http.StatusOK, page)
}

// handleSync pulls bookmark pages from X and upserts them into the
// persisted store. Body/query: cursor (optional), pages (1..10,
// default 1).
func (s *Server) handleSync(c *gin.Context) {
	if s.tweets == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no tweet store configured"})
		return
	}

	pages := 1
	if raw := c.Query("pages"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 10 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pages must be between 1 and 10"})
			return
		}
		pages = parsed
	}

	secrets := s.secrets(c)
	cred := xauth.LoadCredential(secrets)
	cursor := c.Query("cursor")
	ctx := c.Request.Context()

	saved := 0
	var nextToken *string
	for i := 0; i < pages; i++ {
		page, refreshed, err := s.x.FetchBookmarks(ctx, cred, cursor)
		if err != nil {
			s.writeBookmarkError(c, err)
			return
		}
		if refreshed != nil {
			cred = *refreshed
			xauth.SaveCredential(secrets, cred, time.Now())
		}

		written, err := s.tweets.Upsert(ctx, page.Tweets)
		if err != nil {
			log.WithError(err).Error("bookmark sync: store upsert failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save bookmarks"})
			return
		}
		saved += written

		nextToken = page.NextToken
		if nextToken == nil {
			break
		}
		cursor = *nextToken
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved, "next_token": nextToken})
}

// writeBookmarkError maps the access-layer taxonomy onto HTTP statuses.
// Caller cancellation surfaces no error at all.
func (s *Server) writeBookmarkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		c.Abort()
	case errors.Is(err, xauth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not connected to X."})
	case errors.Is(err, xauth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X connection revoked, please reconnect."})
	default:
		var cfgErr *xauth.ConfigError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": cfgErr.Error()})
			return
		}
		log.WithError(err).Error("bookmarks fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch bookmarks from X."})
	}
}
