package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"collabnote-backend/internal/auth"
	"collabnote-backend/internal/errs"
	"collabnote-backend/internal/model"
)

// AuthHandler serves registration, login, and token refresh.
type AuthHandler struct {
	db           *gorm.DB
	jwtManager   *auth.JWTManager
	secureCookie bool
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtManager *auth.JWTManager, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		db:           db,
		jwtManager:   jwtManager,
		secureCookie: secureCookie,
	}
}

// RegisterRequest is the register payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
}

// UserResponse is the public user shape.
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Register creates a user and issues the token pair.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email is required"})
	}
	if len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "password must be at least 6 characters"})
	}

	var existing model.User
	err := h.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return errorResponse(c, errs.ErrEmailTaken)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return errorResponse(c, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), 10)
	if err != nil {
		return errorResponse(c, err)
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashed),
	}
	if err := h.db.Create(&user).Error; err != nil {
		return errorResponse(c, err)
	}

	return h.issueTokens(c, &user)
}

// Login verifies credentials and issues the token pair.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var user model.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return errorResponse(c, errs.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return errorResponse(c, errs.ErrInvalidCredentials)
	}

	return h.issueTokens(c, &user)
}

// RefreshToken rotates the access token from the refresh cookie.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "refresh token not found"})
	}

	userID, err := h.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		h.clearCookie(c, "refresh_token")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired refresh token"})
	}

	var user model.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "user not found"})
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return errorResponse(c, err)
	}
	h.setCookie(c, "access_token", accessToken, int(h.jwtManager.AccessExpiry().Seconds()))

	return c.JSON(fiber.Map{
		"access_token": accessToken,
		"expires_in":   int64(h.jwtManager.AccessExpiry().Seconds()),
	})
}

// Logout clears the auth cookies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearCookie(c, "access_token")
	h.clearCookie(c, "refresh_token")
	return c.JSON(fiber.Map{"message": "logged out"})
}

// GetMe returns the authenticated user.
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	var user model.User
	if err := h.db.First(&user, "id = ?", callerID(c)).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(UserResponse{ID: user.ID, Email: user.Email})
}

func (h *AuthHandler) issueTokens(c *fiber.Ctx, user *model.User) error {
	accessToken, err := h.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return errorResponse(c, err)
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return errorResponse(c, err)
	}

	// The access_token cookie is what the websocket upgrade reads.
	h.setCookie(c, "access_token", accessToken, int(h.jwtManager.AccessExpiry().Seconds()))
	h.setCookie(c, "refresh_token", refreshToken, 7*24*60*60)

	return c.JSON(AuthResponse{
		User:        UserResponse{ID: user.ID, Email: user.Email},
		AccessToken: accessToken,
		ExpiresIn:   int64(h.jwtManager.AccessExpiry().Seconds()),
	})
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.secureCookie,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.secureCookie,
		HTTPOnly: true,
	})
}
