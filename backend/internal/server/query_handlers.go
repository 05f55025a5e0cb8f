package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thoth/backend/internal/agent"
	"thoth/backend/internal/constants"
)

// queryFallbackResponse is returned (and recorded) when the agent turn
// fails; the HTTP contract stays a 200 with a usable message either way.
const queryFallbackResponse = "I apologize, but I'm experiencing technical difficulties. Please try again later."

const maxQueryRunes = 10000

type queryRequest struct {
	Query    string                 `json:"query" binding:"required"`
	ChatID   string                 `json:"chat_id"`
	Language string                 `json:"language"`
	Context  map[string]interface{} `json:"context"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query cannot be empty"})
		return
	}
	if utf8.RuneCountInString(query) > maxQueryRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query too long (max 10,000 characters)"})
		return
	}

	user := currentUser(c)

	chatID := req.ChatID
	if chatID == "" {
		chatID = fmt.Sprintf("chat_%d_%d", user.UserID, time.Now().Unix())
	}

	queryID, err := s.deps.Store.CreateQuery(user.UserID, chatID, query)
	if err != nil {
		s.logger.Error("Failed to persist query", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process query"})
		return
	}

	// Identity fields ride along in the long-term view so the model and
	// the tools know who is asking.
	extra := map[string]interface{}{
		"username": user.Username,
		"user_id":  user.UserID,
	}
	if user.PhoneNumber != nil {
		extra["user_phone_number"] = fmt.Sprintf("+%d", *user.PhoneNumber)
	}

	response, err := s.deps.Service.Process(c.Request.Context(), agent.Request{
		Query:       query,
		UserID:      user.UserID,
		ChatID:      chatID,
		Source:      constants.SourceWebsite,
		Language:    req.Language,
		Context:     req.Context,
		MaxTokens:   constants.QueryMaxTokens,
		Temperature: 0.7,
	}, extra)
	if err != nil {
		s.logger.Error("AI processing error", zap.Int64("query_id", queryID), zap.Error(err))
		response = queryFallbackResponse
	}

	if err := s.deps.Store.UpdateQueryResponse(queryID, response); err != nil {
		s.logger.Error("Failed to record query response",
			zap.Int64("query_id", queryID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"query_id":  queryID,
		"response":  response,
		"chat_id":   chatID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
