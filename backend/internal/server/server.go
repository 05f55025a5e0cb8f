// Package server exposes the assistant over HTTP: a JSON API for
// registration, sessions, queries, and file storage, plus the Twilio
// webhook surface for SMS and voice.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thoth/backend/internal/agent"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/storage"
	"thoth/backend/pkg/logger"
)

// Deps carries everything the HTTP layer needs. DBMemory persists the
// per-user memory documents behind /query; LocalMemory backs the
// webhook turns, which run against the local documents and never save.
type Deps struct {
	Store        *storage.Store
	DBMemory     memory.Backend
	LocalMemory  memory.Backend
	Service      *agent.Service
	Orchestrator *agent.Orchestrator
	SMS          SMSSender
	OwnerPhone   string
	SessionTTL   time.Duration
}

// Server holds the handler set for one router.
type Server struct {
	deps   Deps
	logger *zap.Logger
}

// New creates a Server over the given dependencies.
func New(deps Deps) *Server {
	return &Server{
		deps:   deps,
		logger: logger.Get(),
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(s.logger))
	router.Use(gin.Recovery())
	router.Use(CORS())

	router.GET("/health", s.handleHealth)
	router.POST("/register", s.handleRegister)
	router.POST("/token", s.handleToken)

	authed := router.Group("/", s.requireSession())
	{
		authed.GET("/profile", s.handleProfile)
		authed.POST("/query", s.handleQuery)

		file := authed.Group("/file")
		{
			file.POST("/upload", s.handleFileUpload)
			file.GET("/list", s.handleFileList)
			file.GET("/download/:id", s.handleFileDownload)
			file.DELETE("/:id", s.handleFileDelete)
		}
	}

	// Twilio posts form-encoded callbacks; these are authenticated by
	// phone-number lookup rather than bearer tokens.
	webhook := router.Group("/webhook")
	{
		webhook.POST("/sms", s.handleIncomingSMS)
		webhook.POST("/message-status", s.handleMessageStatus)
		webhook.POST("/incoming-call", s.handleIncomingCall)
		webhook.POST("/transcription-callback", s.handleTranscriptionCallback)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
