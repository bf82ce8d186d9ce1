// handlers/auth_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"partnerdash/api/middleware"
	"partnerdash/api/models"
	"partnerdash/api/store"
	"partnerdash/api/utils"
)

// UserRepository is the subset of the user store the auth handlers need.
type UserRepository interface {
	CreateUser(ctx context.Context, email, role string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandlers struct {
	UserStore UserRepository
	// IsAdmin decides which signups are granted the admin role.
	IsAdmin func(email string) bool
	logger  *zap.Logger
}

func NewAuthHandlers(users UserRepository, isAdmin func(string) bool, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthHandlers{UserStore: users, IsAdmin: isAdmin, logger: logger}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	_, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		h.logger.Error("database error during signup email check", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check user existence"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	role := models.RoleBrandPartner
	if h.IsAdmin(req.Email) {
		role = models.RoleAdmin
	}
	user, err := h.UserStore.CreateUser(c.Request.Context(), req.Email, role, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	h.logger.Info("user registered", zap.Int("user_id", user.ID), zap.String("role", user.Role))
	c.JSON(http.StatusCreated, models.Session{Message: "User registered successfully", UserEmail: user.Email, Role: user.Role})
}

// Login handles user authentication and JWT token creation.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Info("login failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		h.logger.Info("login failed: password mismatch", zap.Int("user_id", user.ID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := utils.GenerateJWT(user)
	if err != nil {
		h.logger.Error("failed to generate JWT", zap.Int("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(
		"jwt_token",
		tokenString,
		int(24*time.Hour/time.Second),
		"/",
		"",
		false,
		true,
	)

	h.logger.Info("user logged in", zap.Int("user_id", user.ID))
	c.JSON(http.StatusOK, models.Session{Message: "Login successful", UserEmail: user.Email, Role: models.NormalizeRole(user.Role)})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie("jwt_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandlers) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    c.MustGet(middleware.KeyUserID),
		"user_email": c.GetString(middleware.KeyUserEmail),
		"role":       c.GetString(middleware.KeyUserRole),
		"ip_address": c.ClientIP(),
	})
}
