package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/briefing/internal/briefing"
	"horse.fit/briefing/internal/globaltime"
	"horse.fit/briefing/internal/ranker"
)

// Server exposes on-demand briefing generation and read-back over HTTP.
type Server struct {
	echo    *echo.Echo
	service *briefing.Service
	logger  zerolog.Logger
}

func NewServer(service *briefing.Service, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		service: service,
		logger:  logger,
	}

	e.GET("/healthz", s.handleHealth)
	e.POST("/api/briefings/:user_id", s.handleGenerate)
	e.GET("/api/briefings/:user_id", s.handleRead)

	return s
}

func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Limit       int    `json:"limit"`
	Mode        string `json:"mode"`
	Perspective bool   `json:"balanced_perspective"`
	Persist     *bool  `json:"persist"`
}

func (s *Server) handleGenerate(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return fail(c, http.StatusBadRequest, "user_id is required")
	}

	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	mode := ranker.Mode(strings.TrimSpace(req.Mode))
	switch mode {
	case "", ranker.ModeBalanced, ranker.ModeTopics:
	default:
		return fail(c, http.StatusBadRequest, "mode must be balanced or topics")
	}

	persist := true
	if req.Persist != nil {
		persist = *req.Persist
	}

	result, err := s.service.Generate(c.Request().Context(), userID, briefing.Options{
		Limit:               req.Limit,
		Mode:                mode,
		BalancedPerspective: req.Perspective,
		Persist:             persist,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("on-demand generation failed")
		return internalError(c, "briefing generation failed")
	}

	return success(c, map[string]any{
		"user_id":    result.UserID,
		"date":       result.Date.Format("2006-01-02"),
		"candidates": result.Candidates,
		"clusters":   result.Clusters,
		"persisted":  result.Persisted,
		"items":      result.Items,
	})
}

func (s *Server) handleRead(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return fail(c, http.StatusBadRequest, "user_id is required")
	}

	day := globaltime.UTC()
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		day = parsed
	}

	items, found, err := s.service.Read(c.Request().Context(), userID, day)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("briefing read failed")
		return internalError(c, "briefing read failed")
	}
	if !found {
		return failNotFound(c, "no briefing for "+day.UTC().Format("2006-01-02"))
	}

	return success(c, map[string]any{
		"user_id": userID,
		"date":    day.UTC().Format("2006-01-02"),
		"count":   len(items),
		"items":   items,
	})
}
