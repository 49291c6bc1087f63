package handler

import (
	"errors"
	"net/http"
	"strings"

	"taskmanager/internal/auth"
	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type UserHandler struct {
	repo   repository.UserRepositoryInterface
	tokens *auth.Manager
}

func NewUserHandler(repo repository.UserRepositoryInterface, tokens *auth.Manager) *UserHandler {
	return &UserHandler{repo: repo, tokens: tokens}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type PreferencesRequest struct {
	DarkMode *bool `json:"darkMode" binding:"required"`
}

type UserResponse struct {
	ID          string            `json:"id"`
	Username    string            `json:"username"`
	Email       string            `json:"email"`
	Preferences model.Preferences `json:"preferences"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Username:    u.Username,
		Email:       u.Email,
		Preferences: u.Preferences,
	}
}

// Register godoc
// @Summary      Register a new user
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "New account"
// @Success      201   {object}  AuthResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	existing, err := h.repo.FindByEmailOrUsername(c.Request.Context(), req.Email, req.Username)
	if err != nil {
		log.WithError(err).Error("lookup user for registration")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email or username already exists"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.WithError(err).Error("hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := &model.User{
		ID:             uuid.New(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hash,
	}
	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email or username already exists"})
			return
		}
		log.WithError(err).Error("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login godoc
// @Summary      Log in with email and password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  AuthResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.repo.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		log.WithError(err).Error("lookup user for login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if user == nil || !auth.CheckPassword(user.HashedPassword, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me godoc
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /api/auth/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdatePreferences godoc
// @Summary      Update UI preferences
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      PreferencesRequest  true  "Preferences"
// @Success      200   {object}  UserResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /api/auth/preferences [patch]
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	prefs := model.Preferences{DarkMode: *req.DarkMode}
	if err := h.repo.UpdatePreferences(c.Request.Context(), user.ID, prefs); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		log.WithError(err).Error("update preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user.Preferences = prefs
	c.JSON(http.StatusOK, toUserResponse(user))
}

// currentUser loads the authenticated user; a token for a deleted account is
// rejected with 401.
func (h *UserHandler) currentUser(c *gin.Context) (*model.User, bool) {
	userID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).Error("load current user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return nil, false
	}
	return user, true
}

func (h *UserHandler) respondWithToken(c *gin.Context, status int, user *model.User) {
	token, err := h.tokens.GenerateToken(user.ID.String())
	if err != nil {
		log.WithError(err).Error("sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: toUserResponse(user)})
}
