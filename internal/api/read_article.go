package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/reader"
)

// handleReadArticle extracts readable content from an external URL.
func (s *Server) handleReadArticle(c *gin.Context) {
	if !s.readLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many article requests, slow down"})
		return
	}

	article, err := s.reader.Extract(c.Request.Context(), c.Query("url"))
	if err != nil {
		s.writeReaderError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (s *Server) writeReaderError(c *gin.Context, err error) {
	var fetchErr *reader.FetchError
	switch {
	case errors.Is(err, context.Canceled):
		c.Abort()
	case errors.Is(err, reader.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing url parameter."})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fetchErr.Error()})
	case errors.Is(err, reader.ErrUnreadable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not extract readable article content."})
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Article extraction temporarily unavailable."})
	default:
		log.WithError(err).Error("article extraction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to extract article content."})
	}
}
