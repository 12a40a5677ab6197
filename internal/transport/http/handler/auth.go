package handler

import (
	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/app"
	"constitution-gpt/internal/model"
	"constitution-gpt/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role" binding:"omitempty,oneof=user lawyer"`
	Phone    string `json:"phone" binding:"max=32"`
	Address  string `json:"address" binding:"max=255"`
	City     string `json:"city" binding:"max=64"`
}

type LoginRequest struct {
	// Username accepts a username or an email address.
	Username string `json:"username" binding:"required,max=128"`
	Password string `json:"password" binding:"required,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

type userView struct {
	ID         uint       `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role"`
	IsVerified bool       `json:"is_verified"`
	Phone      string     `json:"phone,omitempty"`
	Address    string     `json:"address,omitempty"`
	City       string     `json:"city,omitempty"`
}

func newUserView(u *model.User) userView {
	return userView{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		Phone:      u.Phone,
		Address:    u.Address,
		City:       u.City,
	}
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
	})
	if err != nil {
		writeError(c, err, "register failed")
		return
	}
	response.Created(c, gin.H{"user": newUserView(user)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Identifier: req.Username,
		Password:   req.Password,
	})
	if err != nil {
		writeError(c, err, "login failed")
		return
	}
	response.OK(c, gin.H{
		"access_token":       result.AccessToken,
		"refresh_token":      result.RefreshToken,
		"token_type":         result.TokenType,
		"access_expires_at":  result.AccessExpiresAt,
		"refresh_expires_at": result.RefreshExpiresAt,
		"user":               newUserView(result.User),
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err, "refresh failed")
		return
	}
	response.OK(c, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, err, "logout failed")
		return
	}
	response.OK(c, gin.H{"logged_out": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "fetch current user failed")
		return
	}
	response.OK(c, gin.H{"valid": true, "user": newUserView(user)})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err, "change password failed")
		return
	}
	response.OK(c, gin.H{"updated": true})
}
