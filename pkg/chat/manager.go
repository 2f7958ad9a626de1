// Package chat logs conversations between users and the assistant.
package chat

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mgrd/docstack/internal/models"
)

const defaultHistoryLimit = 50

// HistoryManager persists chat messages per user and conversation.
type HistoryManager struct {
	db *gorm.DB
}

func NewHistoryManager(db *gorm.DB) *HistoryManager {
	return &HistoryManager{db: db}
}

// StartConversation mints a new conversation id scoped to the user and
// login session.
func (m *HistoryManager) StartConversation(userID, sessionID int64) string {
	return fmt.Sprintf("conv_%d_%d_%d", userID, sessionID, time.Now().Unix())
}

// AddUserMessage logs a message sent by the user.
func (m *HistoryManager) AddUserMessage(userID, sessionID int64, conversationID, content string) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		UserID:         userID,
		SessionID:      sessionID,
		ConversationID: conversationID,
		MessageType:    models.MessageTypeUser,
		Content:        content,
	}
	if err := m.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("log user message: %w", err)
	}
	return &msg, nil
}

// AddAssistantMessage logs the assistant's reply along with its
// generation stats.
func (m *HistoryManager) AddAssistantMessage(userID, sessionID int64, conversationID, content string, tokensUsed int, model string, responseTime time.Duration) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		UserID:         userID,
		SessionID:      sessionID,
		ConversationID: conversationID,
		MessageType:    models.MessageTypeAssistant,
		Content:        content,
		TokensUsed:     tokensUsed,
		LLMModel:       model,
		ResponseTimeMs: responseTime.Milliseconds(),
	}
	if err := m.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("log assistant message: %w", err)
	}
	return &msg, nil
}

// History returns a user's most recent messages in chronological order.
// A non-empty conversationID narrows the result to one conversation.
func (m *HistoryManager) History(userID int64, conversationID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := m.db.Where("user_id = ?", userID)
	if conversationID != "" {
		query = query.Where("conversation_id = ?", conversationID)
	}

	// Fetch the newest rows, then flip them so callers read the
	// conversation top to bottom.
	var messages []models.ChatMessage
	if err := query.Order("timestamp DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
