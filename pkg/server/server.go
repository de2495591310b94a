package server

import (
	"context"
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/segmentio/ksuid"

	"ainia/pkg/flight"
	"ainia/pkg/quest"
	"ainia/pkg/safety"
)

// Stories is the pipeline surface the HTTP API exposes.
type Stories interface {
	GenerateStory(ctx context.Context, req quest.Request) (quest.Result, error)
	Screen(topic string) (safety.Verdict, error)
	Usage(ctx context.Context, userID string) (quest.Usage, error)
}

type Server struct {
	Echo    *echo.Echo
	Stories Stories
	Lexicon string

	logger   *charmlog.Logger
	inflight flight.Group[quest.Request, quest.Result]
}

func NewServer(stories Stories, lexiconVersion string, logger *charmlog.Logger) *Server {
	if logger == nil {
		logger = charmlog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLevel(logger.GetLevel()))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return ksuid.New().String() },
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("16K"))

	s := &Server{
		Echo:    e,
		Stories: stories,
		Lexicon: lexiconVersion,
		logger:  logger.WithPrefix("http"),
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	api := s.Echo.Group("/api")
	api.POST("/stories", s.handlePostStory)        // generate or fetch a cached story
	api.POST("/topics/screen", s.handleScreenTopic) // pre-check a topic before submitting
	api.GET("/usage/:user", s.handleGetUsage)       // today's count against the daily limit
}

func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if err := s.Echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func echoLevel(l charmlog.Level) log.Lvl {
	switch {
	case l <= charmlog.DebugLevel:
		return log.DEBUG
	case l <= charmlog.InfoLevel:
		return log.INFO
	case l <= charmlog.WarnLevel:
		return log.WARN
	default:
		return log.ERROR
	}
}
