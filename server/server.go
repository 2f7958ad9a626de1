// Package server exposes the HTTP API: document management, semantic
// search, authentication, and chat.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mgrd/docstack/internal/models"
	"github.com/mgrd/docstack/internal/types"
	"github.com/mgrd/docstack/pkg/auth"
	"github.com/mgrd/docstack/pkg/chat"
	"github.com/mgrd/docstack/pkg/repo"
)

// ChatModel is the slice of the chat engine the handlers need.
type ChatModel interface {
	Chat(ctx context.Context, query string, results []models.SearchResult) (string, error)
	Model() string
}

type ServerConfig struct {
	Port      int
	UploadDir string

	// Pipeline is nil when vector processing could not be initialized;
	// endpoints that need it then answer 503.
	Pipeline  types.Pipeline
	Documents *repo.DocumentRepo
	Users     *auth.UserManager
	History   *chat.HistoryManager
	Chat      ChatModel
}

type Server struct {
	config ServerConfig
	echo   *echo.Echo
}

func NewWithConfig(config ServerConfig) (*Server, error) {
	if config.Documents == nil {
		return nil, fmt.Errorf("document repository is required")
	}
	if config.Users == nil {
		return nil, fmt.Errorf("user manager is required")
	}
	if config.History == nil {
		return nil, fmt.Errorf("chat history manager is required")
	}
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.UploadDir == "" {
		config.UploadDir = "uploads"
	}

	s := &Server{
		config: config,
		echo:   echo.New(),
	}
	s.echo.HideBanner = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.Logger())
	s.echo.Use(middleware.CORS())

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	e := s.echo

	e.GET("/", s.handleIndex)
	e.GET("/health", s.handleHealth)

	e.POST("/documents/upload", s.handleUpload)
	e.POST("/documents/upload-multiple", s.handleUploadMultiple)
	e.GET("/documents", s.handleListDocuments)
	e.GET("/documents/:id", s.handleGetDocument)
	e.DELETE("/documents/:id", s.handleDeleteDocument)
	e.GET("/documents/:id/chunks", s.handleDocumentChunks)
	e.POST("/documents/:id/reprocess", s.handleReprocess)

	e.POST("/search", s.handleSearch)
	e.GET("/vector/stats", s.handleVectorStats)

	e.POST("/auth/register", s.handleRegister)
	e.POST("/auth/login", s.handleLogin)

	authed := e.Group("", s.requireSession)
	authed.GET("/auth/me", s.handleProfile)
	authed.POST("/auth/logout", s.handleLogout)
	authed.POST("/chat", s.handleChat)
	authed.GET("/chat/history", s.handleChatHistory)
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%d", s.config.Port))
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "docstack",
		"message": "document management API",
		"endpoints": []string{
			"/documents/upload",
			"/documents",
			"/search",
			"/auth/login",
			"/chat",
		},
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":          "ok",
		"vector_pipeline": s.config.Pipeline != nil,
	})
}

// pipelineOr503 returns the pipeline, or writes a 503 and returns nil.
func (s *Server) pipelineOr503(c echo.Context) types.Pipeline {
	if s.config.Pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "vector pipeline is not available",
		})
		return nil
	}
	return s.config.Pipeline
}
