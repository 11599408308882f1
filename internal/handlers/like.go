package handlers

import (
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"socialwall/internal/services"
	"socialwall/internal/utils"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	likes *services.LikeService
}

func NewLikeHandler(likes *services.LikeService) *LikeHandler {
	return &LikeHandler{likes: likes}
}

type likeRequest struct {
	TargetID   uint              `json:"targetId" form:"targetId" binding:"required"`
	TargetType models.TargetType `json:"targetType" form:"targetType" binding:"required,oneof=POST COMMENT"`
}

func (h *LikeHandler) Create(c *gin.Context) {
	var req likeRequest
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}

	like, err := h.likes.Like(c.Request.Context(), currentUser(c).ID, services.Target{ID: req.TargetID, Type: req.TargetType})
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"like": like})
}

// Delete removes the viewer's like found by ?targetId=&targetType=.
func (h *LikeHandler) Delete(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		apperr.HandleError(c, apperr.Validation(apperr.Field("targetType", "targetId and targetType are required", nil)))
		return
	}

	if err := h.likes.Unlike(c.Request.Context(), currentUser(c).ID, services.Target{ID: req.TargetID, Type: req.TargetType}); err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *LikeHandler) DeleteByID(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	if err := h.likes.UnlikeByID(c.Request.Context(), currentUser(c).ID, id); err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Sample 悬停预览用的点赞用户列表
func (h *LikeHandler) Sample(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		apperr.HandleError(c, apperr.Validation(apperr.Field("targetType", "targetId and targetType are required", nil)))
		return
	}

	sample, err := h.likes.Sample(c.Request.Context(), currentUser(c).ID,
		services.Target{ID: req.TargetID, Type: req.TargetType},
		utils.StringToInt(c.Query("limit")))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sample)
}
