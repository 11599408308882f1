package handlers

import (
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/middleware"
	"socialwall/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
	cache *middleware.UserCache
}

func NewUserHandler(users *services.UserService, cache *middleware.UserCache) *UserHandler {
	return &UserHandler{users: users, cache: cache}
}

// Profile - 用户主页头部 /users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	userID, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	profile, err := h.users.Profile(c.Request.Context(), currentUser(c).ID, userID)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateMe 修改自己的姓名
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		FirstName *string `json:"firstName" binding:"omitempty,max=100"`
		LastName  *string `json:"lastName" binding:"omitempty,max=100"`
	}
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}

	me := currentUser(c)
	user, err := h.users.UpdateProfile(c.Request.Context(), me.ID, services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	// 缓存里的旧名字立即失效
	h.cache.Delete(me.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}
