package handlers

import (
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
	likes    *services.LikeService
}

func NewCommentHandler(comments *services.CommentService, likes *services.LikeService) *CommentHandler {
	return &CommentHandler{comments: comments, likes: likes}
}

type commentRequest struct {
	PostID   uint    `json:"postId"`
	ParentID *uint   `json:"parentId"`
	Content  *string `json:"content" binding:"omitempty,max=2000"`
	ImageURL *string `json:"imageUrl" binding:"omitempty,max=2048"`
}

// Create 发表评论或回复
func (h *CommentHandler) Create(c *gin.Context) {
	var req commentRequest
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), currentUser(c).ID, services.CreateCommentInput{
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *CommentHandler) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	comment, err := h.comments.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

func (h *CommentHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	var req commentRequest
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}

	comment, err := h.comments.Update(c.Request.Context(), currentUser(c).ID, id, services.UpdateCommentInput{
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// Delete 软删除评论，返回墓碑
func (h *CommentHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	comment, err := h.comments.Delete(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

func (h *CommentHandler) Replies(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	replies, count, err := h.comments.Replies(c.Request.Context(), currentUser(c).ID, id, pagination(c))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(replies, count))
}

func (h *CommentHandler) Likes(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	likes, count, err := h.likes.List(c.Request.Context(), currentUser(c).ID, services.CommentTarget(id), pagination(c))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(likes, count))
}
