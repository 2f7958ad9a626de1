package models

import "time"

// User is a registered account. PasswordHash is a bcrypt hash and is
// never serialized.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitempty"`
}

// Session is an opaque-token login session. At most five sessions per
// user are active at a time; the oldest is deactivated when a sixth is
// created.
type Session struct {
	ID           int64     `gorm:"primaryKey" json:"session_id"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	Token        string    `gorm:"uniqueIndex;not null" json:"-"`
	IsActive     bool      `gorm:"default:true" json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message type values for chat history rows.
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// ChatMessage is one logged message in a conversation. Assistant
// messages additionally record token usage, the model used and the
// response latency.
type ChatMessage struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	UserID         int64     `gorm:"index;not null" json:"user_id"`
	SessionID      int64     `gorm:"index;not null" json:"session_id"`
	ConversationID string    `gorm:"index" json:"conversation_id,omitempty"`
	MessageType    string    `gorm:"not null" json:"message_type"`
	Content        string    `gorm:"not null" json:"content"`
	TokensUsed     int       `json:"tokens_used,omitempty"`
	LLMModel       string    `json:"llm_model,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms,omitempty"`
	Timestamp      time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// UserRegistration is the register/login request body.
type UserRegistration struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// AuthResponse is returned on a successful login.
type AuthResponse struct {
	Success      bool      `json:"success"`
	User         *User     `json:"user,omitempty"`
	SessionToken string    `json:"session_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Error        string    `json:"error,omitempty"`
}
