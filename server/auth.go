package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mgrd/docstack/internal/models"
	"github.com/mgrd/docstack/pkg/auth"
)

// Context keys set by requireSession.
const (
	ctxUserKey    = "auth.user"
	ctxSessionKey = "auth.session"
)

func (s *Server) handleRegister(c echo.Context) error {
	var reg models.UserRegistration
	if err := c.Bind(&reg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user, err := s.config.Users.Register(reg)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, user)
}

func (s *Server) handleLogin(c echo.Context) error {
	var reg models.UserRegistration
	if err := c.Bind(&reg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user, session, err := s.config.Users.Authenticate(reg.Username, reg.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, models.AuthResponse{
				Success: false,
				Error:   err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, models.AuthResponse{
		Success:      true,
		User:         user,
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt,
	})
}

func (s *Server) handleProfile(c echo.Context) error {
	user := c.Get(ctxUserKey).(*models.User)
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleLogout(c echo.Context) error {
	session := c.Get(ctxSessionKey).(*models.Session)
	if err := s.config.Users.Logout(session.Token); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// requireSession authenticates the bearer token and stashes the user
// and session in the request context.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request().Header.Get("Authorization"))
		user, session, err := s.config.Users.ValidateSession(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "authentication required",
			})
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxSessionKey, session)
		return next(c)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
