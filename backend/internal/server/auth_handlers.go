package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"thoth/backend/internal/storage"
)

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber *int64 `json:"phone_number"`
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// bcryptSecret caps the password at bcrypt's 72-byte input limit so
// overlong passwords hash instead of erroring.
func bcryptSecret(password string) []byte {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return b
}

func validateCredentials(username, password string) (string, string) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return "", "Username must be at least 3 characters"
	}
	if len(password) < 6 {
		return "", "Password must be at least 6 characters"
	}
	return username, ""
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username, problem := validateCredentials(req.Username, req.Password)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptSecret(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	user, err := s.deps.Store.CreateUser(username, string(hash), req.PhoneNumber)
	if errors.Is(err, storage.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already registered"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.UserID),
		zap.String("username", user.Username),
	)
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"user_id":  user.UserID,
		"username": user.Username,
		"message":  "User registered successfully",
	})
}

func (s *Server) handleToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username, problem := validateCredentials(req.Username, req.Password)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	user, err := s.deps.Store.GetUserByUsername(username)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), bcryptSecret(req.Password)) != nil {
		s.logger.Warn("Authentication failed", zap.String("username", username))
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
		return
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.deps.SessionTTL)
	if err := s.deps.Store.CreateSession(user.UserID, token, expiresAt); err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int64(s.deps.SessionTTL.Seconds()),
		"user_id":      user.UserID,
		"username":     user.Username,
	})
}

func (s *Server) handleProfile(c *gin.Context) {
	user := currentUser(c)

	var phone int64
	if user.PhoneNumber != nil {
		phone = *user.PhoneNumber
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":       user.UserID,
		"username":      user.Username,
		"phone_number":  phone,
		"role":          user.Role,
		"max_file_size": user.MaxFileSize,
	})
}
