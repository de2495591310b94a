package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"ainia/pkg/apierr"
	"ainia/pkg/quest"
	"ainia/pkg/utils"
)

type screenReq struct {
	Topic string `json:"topic"`
}

func (s *Server) handleGetRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "Ainia Story API",
		"status":  "ok",
		"lexicon": s.Lexicon,
	})
}

func (s *Server) fail(c echo.Context, err error) error {
	status := apierr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "request", requestID(c), "error", err)
	}
	return c.JSON(status, utils.ErrJSON(apierr.ReasonOf(err)))
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// POST /api/stories
func (s *Server) handlePostStory(c echo.Context) error {
	var req quest.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}
	req.UserID = strings.TrimSpace(req.UserID)

	// Identical submissions in flight share one pipeline run. The run outlives
	// a disconnecting client so its result still reaches the cache.
	ctx := quest.WithRequestID(context.WithoutCancel(c.Request().Context()), requestID(c))
	res, err, shared := s.inflight.Do(req, func() (quest.Result, error) {
		return s.Stories.GenerateStory(ctx, req)
	})
	if shared {
		s.logger.Debug("coalesced story request", "request", requestID(c), "user", req.UserID)
	}
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /api/topics/screen
func (s *Server) handleScreenTopic(c echo.Context) error {
	var req screenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("invalid json"))
	}
	v, err := s.Stories.Screen(req.Topic)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// GET /api/usage/:user
func (s *Server) handleGetUsage(c echo.Context) error {
	u, err := s.Stories.Usage(c.Request().Context(), c.Param("user"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
