package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sevir/runnerhost/internal/host"
	"github.com/sevir/runnerhost/internal/journal"
	"github.com/sevir/runnerhost/internal/logging"
	"github.com/sevir/runnerhost/internal/surface"
	"github.com/sevir/runnerhost/pkg/models"
)

const (
	defaultLogChunk = 64 * 1024
	maxLogChunk     = 1024 * 1024
)

func (s *Server) newGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(s.logger))

	api := r.Group("/api")
	{
		api.GET("/version", s.handleAPIVersion)

		api.GET("/runner/status", s.handleAPIRunnerStatus)
		api.POST("/runner/start", s.handleAPIRunnerStart)
		api.POST("/runner/stop", s.handleAPIRunnerStop)
		api.GET("/runner/log", s.handleAPIRunnerLog)

		api.POST("/logs/open", s.handleAPILogsOpen)
		api.GET("/events", s.handleAPIEventsList)

		api.GET("/menu", s.handleAPIMenu)
		api.POST("/menu/:id", s.handleAPIMenuClick)
		api.POST("/tray/click", s.handleAPITrayClick)

		api.GET("/window", s.handleAPIWindow)
		api.POST("/window/close", s.handleAPIWindowClose)
	}

	return r
}

func (s *Server) handleAPIVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": s.version,
		"commit":  s.commit,
	})
}

func (s *Server) handleAPIRunnerStatus(c *gin.Context) {
	withResources := c.Query("resources") != "false"
	c.JSON(http.StatusOK, s.runnerStatus(c.Request.Context(), withResources))
}

func (s *Server) handleAPIRunnerStart(c *gin.Context) {
	msg, err := s.supervisor.Start()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (s *Server) handleAPIRunnerStop(c *gin.Context) {
	msg, err := s.supervisor.Stop()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (s *Server) handleAPILogsOpen(c *gin.Context) {
	msg, err := s.host.OpenLogs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "path": s.host.LogsDir()})
}

func (s *Server) handleAPIRunnerLog(c *gin.Context) {
	path := s.config.Worker.LogFile
	if path == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "log not available"})
		return
	}

	offset := int64(0)
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return
		}
		offset = v
	}

	limit := int64(defaultLogChunk)
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if v > maxLogChunk {
			v = maxLogChunk
		}
		limit = v
	}

	data, nextOffset, truncated, err := readLogChunk(path, offset, limit)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "log not available"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content":     string(data),
		"next_offset": nextOffset,
		"truncated":   truncated,
	})
}

func (s *Server) handleAPIEventsList(c *gin.Context) {
	kinds, err := parseKindQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := journal.ListFilter{Kinds: kinds}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = v
	}

	c.JSON(http.StatusOK, gin.H{
		"events": s.journal.List(filter),
		"total":  s.journal.Len(),
	})
}

func (s *Server) handleAPIMenu(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": surface.Menu()})
}

func (s *Server) handleAPIMenuClick(c *gin.Context) {
	id := c.Param("id")
	if !s.dispatcher.HandleMenuClick(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown menu item"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"action": id})
}

func (s *Server) handleAPITrayClick(c *gin.Context) {
	s.dispatcher.HandleLeftClick()
	c.JSON(http.StatusOK, gin.H{"visible": s.host.Window().Visible()})
}

func (s *Server) handleAPIWindow(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"visible": s.host.Window().Visible()})
}

func (s *Server) handleAPIWindowClose(c *gin.Context) {
	ev := &host.CloseEvent{}
	s.host.OnCloseRequested(ev)
	c.JSON(http.StatusOK, gin.H{
		"prevented": ev.Prevented(),
		"visible":   s.host.Window().Visible(),
	})
}

func parseKindQuery(c *gin.Context) ([]models.EventKind, error) {
	raw := c.QueryArray("kind")
	if len(raw) == 1 {
		// Also accept a comma-separated list.
		raw = strings.Split(raw[0], ",")
	}

	var kinds []models.EventKind
	for _, part := range raw {
		k := models.EventKind(strings.TrimSpace(part))
		if k == "" {
			continue
		}
		if !models.ValidEventKind(k) {
			return nil, &apiError{msg: "invalid kind"}
		}
		kinds = append(kinds, k)
	}

	return kinds, nil
}

type apiError struct{ msg string }

func (e *apiError) Error() string { return e.msg }

func readLogChunk(path string, offset, max int64) ([]byte, int64, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset, false, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, offset, false, err
	}

	size := st.Size()
	start := offset
	truncated := false

	if start < 0 {
		start = 0
	}
	// The worker log is append-only; a smaller file means it was rotated.
	if start > size {
		start = 0
	}

	// If starting from 0 and file is very large, return a tail window.
	if start == 0 && size > max {
		start = size - max
		truncated = true
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, start, false, err
	}

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, start, false, err
	}

	if int64(len(data)) > max {
		data = data[:max]
		truncated = true
	}

	nextOffset := start + int64(len(data))
	return data, nextOffset, truncated, nil
}
