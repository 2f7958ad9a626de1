// Package auth implements account registration and opaque-token session
// management backed by the relational database.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mgrd/docstack/internal/models"
)

const (
	sessionTTL     = 24 * time.Hour
	maxActiveCount = 5
)

var (
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// UserManager owns users and their login sessions.
type UserManager struct {
	db *gorm.DB
}

func NewUserManager(db *gorm.DB) *UserManager {
	return &UserManager{db: db}
}

// Register creates a new active account. Username and email must be
// unique across all accounts.
func (m *UserManager) Register(reg models.UserRegistration) (*models.User, error) {
	if reg.Username == "" || reg.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	// The email column carries a unique index, so an empty email is
	// also claimed by whichever account registers it first.
	var count int64
	if err := m.db.Model(&models.User{}).
		Where("username = ? OR email = ?", reg.Username, reg.Email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := m.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &user, nil
}

// Authenticate verifies credentials and opens a new session. A user may
// hold at most five active sessions; opening a sixth deactivates the
// oldest.
func (m *UserManager) Authenticate(username, password string) (*models.User, *models.Session, error) {
	var user models.User
	err := m.db.Where("username = ? AND is_active = ?", username, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := m.evictOldestSessions(user.ID); err != nil {
		return nil, nil, err
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	session := models.Session{
		UserID:       user.ID,
		Token:        token,
		IsActive:     true,
		ExpiresAt:    now.Add(sessionTTL),
		LastActivity: now,
	}
	if err := m.db.Create(&session).Error; err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	user.LastLogin = now
	if err := m.db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, nil, fmt.Errorf("update last login: %w", err)
	}

	return &user, &session, nil
}

// ValidateSession resolves a bearer token to its user, expiring stale
// sessions and touching last activity on valid ones.
func (m *UserManager) ValidateSession(token string) (*models.User, *models.Session, error) {
	if token == "" {
		return nil, nil, ErrInvalidSession
	}

	var session models.Session
	err := m.db.Where("token = ? AND is_active = ?", token, true).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		m.db.Model(&session).Update("is_active", false)
		return nil, nil, ErrInvalidSession
	}

	var user models.User
	if err := m.db.Where("id = ? AND is_active = ?", session.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	session.LastActivity = time.Now()
	if err := m.db.Model(&session).Update("last_activity", session.LastActivity).Error; err != nil {
		return nil, nil, fmt.Errorf("touch session: %w", err)
	}

	return &user, &session, nil
}

// Logout deactivates the session for the given token. Unknown tokens
// are not an error.
func (m *UserManager) Logout(token string) error {
	if err := m.db.Model(&models.Session{}).
		Where("token = ?", token).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (m *UserManager) evictOldestSessions(userID int64) error {
	var sessions []models.Session
	if err := m.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").Find(&sessions).Error; err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	// Deactivate enough of the oldest sessions to make room for one
	// more under the cap.
	excess := len(sessions) - (maxActiveCount - 1)
	for i := 0; i < excess; i++ {
		if err := m.db.Model(&sessions[i]).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("evict session: %w", err)
		}
	}

	return nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
