package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/store"
)

// handleListTweets serves a page from the persisted store. Query
// params: page (zero-based), search, tags (comma-separated, any-of).
func (s *Server) handleListTweets(c *gin.Context) {
	if s.tweets == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no tweet store configured"})
		return
	}

	page := 0
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a non-negative integer"})
			return
		}
		page = parsed
	}

	var tags []string
	if raw := c.Query("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}

	results, hasMore, err := s.tweets.List(c.Request.Context(), store.ListQuery{
		Page:   page,
		Search: c.Query("search"),
		Tags:   tags,
	})
	if err != nil {
		log.WithError(err).Error("tweet listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tweets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tweets": results, "has_more": hasMore})
}

// handleGetTweet serves a single persisted tweet by its provider id.
func (s *Server) handleGetTweet(c *gin.Context) {
	if s.tweets == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no tweet store configured"})
		return
	}

	record, err := s.tweets.GetByTweetID(c.Request.Context(), c.Param("tweetID"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "tweet not found"})
		return
	}
	if err != nil {
		log.WithError(err).Error("tweet lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tweet"})
		return
	}

	c.JSON(http.StatusOK, record)
}
