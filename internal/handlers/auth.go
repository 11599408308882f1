package handlers

import (
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const refreshTokenKey = "refresh_token"

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		FirstName string `json:"firstName" binding:"required,max=100"`
		LastName  string `json:"lastName" binding:"required,max=100"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=8,max=72"`
	}
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login 校验账号密码，refresh token 写入 session cookie，access token 直接返回
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}

	s, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	h.respondWithSession(c, s)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	session := sessions.Default(c)
	token, _ := session.Get(refreshTokenKey).(string)
	if token == "" {
		apperr.HandleError(c, apperr.Unauthorized("No active session"))
		return
	}

	s, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		session.Clear()
		session.Save()
		apperr.HandleError(c, err)
		return
	}
	h.respondWithSession(c, s)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apperr.HandleError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (h *AuthHandler) respondWithSession(c *gin.Context, s *services.Session) {
	session := sessions.Default(c)
	session.Set(refreshTokenKey, s.RefreshToken)
	if err := session.Save(); err != nil {
		apperr.HandleError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": s.AccessToken, "user": s.User})
}
