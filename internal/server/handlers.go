package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/soundcloud-audio-bot/internal/job"
)

func (s *Server) healthCheck(c *gin.Context) {
	active := 0
	if s.attempts != nil {
		active = s.attempts.Active()
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Active:    active,
	})
}

func (s *Server) getStats(c *gin.Context) {
	var resp StatsResponse

	if s.live != nil {
		live := s.live.Stats()
		resp.Live = &live
	}

	if s.history != nil {
		st, err := s.history.Stats(c.Request.Context())
		if err != nil {
			slog.Error("Failed to load history stats", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load statistics"})
			return
		}
		resp.History = &st
	}

	c.JSON(http.StatusOK, resp)
}

// listAttempts returns recent attempts, newest first. Invalid paging
// parameters fall back to the defaults.
func (s *Server) listAttempts(c *gin.Context) {
	if s.attempts == nil {
		c.JSON(http.StatusOK, &job.Response{Attempts: []*job.Attempt{}, Page: 1, PageSize: job.DefaultPageSize})
		return
	}

	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}

	c.JSON(http.StatusOK, s.attempts.ListAttempts(page, pageSize))
}

func (s *Server) getAttempt(c *gin.Context) {
	id := c.Param("id")
	if s.attempts == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%v: %s", job.ErrNotFound, id)})
		return
	}

	attempt, err := s.attempts.GetAttempt(id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%v: %s", job.ErrNotFound, id)})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, attempt)
}

func (s *Server) listArchive(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "archive not configured"})
		return
	}

	objects, err := s.archive.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list archive", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list archive"})
		return
	}
	if objects == nil {
		objects = []string{}
	}
	c.JSON(http.StatusOK, ArchiveResponse{Objects: objects, Count: len(objects)})
}
