package handlers

import (
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/services"

	"github.com/gin-gonic/gin"
)

type FriendshipHandler struct {
	friends *services.FriendshipService
}

func NewFriendshipHandler(friends *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friends: friends}
}

func (h *FriendshipHandler) List(c *gin.Context) {
	users, count, err := h.friends.Friends(c.Request.Context(), currentUser(c).ID, pagination(c))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(users, count))
}

func (h *FriendshipHandler) Requests(c *gin.Context) {
	requests, err := h.friends.Requests(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(requests, int64(len(requests))))
}

func (h *FriendshipHandler) Send(c *gin.Context) {
	var req struct {
		UserID uint `json:"userId" binding:"required"`
	}
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}
	f, err := h.friends.Send(c.Request.Context(), currentUser(c).ID, req.UserID)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"friendship": f})
}

// Respond 接受或拒绝好友请求，:userId 是请求方
func (h *FriendshipHandler) Respond(c *gin.Context) {
	requesterID, err := paramID(c, "userId")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	var req struct {
		Action services.FriendAction `json:"action" binding:"required,oneof=accept decline"`
	}
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}

	f, err := h.friends.Respond(c.Request.Context(), currentUser(c).ID, requesterID, req.Action)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friendship": f})
}

func (h *FriendshipHandler) Remove(c *gin.Context) {
	otherID, err := paramID(c, "userId")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	if err := h.friends.Remove(c.Request.Context(), currentUser(c).ID, otherID); err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
