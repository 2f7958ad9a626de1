package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mgrd/docstack/internal/models"
)

const chatContextChunks = 5

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID string                `json:"conversation_id"`
	Response       string                `json:"response"`
	Sources        []models.SearchResult `json:"sources"`
	ResponseTimeMs int64                 `json:"response_time_ms"`
}

func (s *Server) handleChat(c echo.Context) error {
	user := c.Get(ctxUserKey).(*models.User)
	session := c.Get(ctxSessionKey).(*models.Session)

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	pipeline := s.pipelineOr503(c)
	if pipeline == nil {
		return nil
	}
	if s.config.Chat == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "chat model is not available",
		})
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = s.config.History.StartConversation(user.ID, session.ID)
	}

	if _, err := s.config.History.AddUserMessage(user.ID, session.ID, conversationID, req.Message); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()

	sources, err := pipeline.SearchDocuments(ctx, req.Message, chatContextChunks)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	started := time.Now()
	answer, err := s.config.Chat.Chat(ctx, req.Message, sources)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	elapsed := time.Since(started)

	// Rough usage figure; the local model does not report token counts.
	tokensUsed := len(strings.Fields(answer))

	if _, err := s.config.History.AddAssistantMessage(user.ID, session.ID, conversationID,
		answer, tokensUsed, s.config.Chat.Model(), elapsed); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if sources == nil {
		sources = []models.SearchResult{}
	}

	return c.JSON(http.StatusOK, chatResponse{
		ConversationID: conversationID,
		Response:       answer,
		Sources:        sources,
		ResponseTimeMs: elapsed.Milliseconds(),
	})
}

func (s *Server) handleChatHistory(c echo.Context) error {
	user := c.Get(ctxUserKey).(*models.User)

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = parsed
	}

	messages, err := s.config.History.History(user.ID, c.QueryParam("conversation_id"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user_id":  user.ID,
		"messages": messages,
	})
}
