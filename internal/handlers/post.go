package handlers

import (
	"context"
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"socialwall/internal/services"
	"socialwall/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PostHandler struct {
	posts    *services.PostService
	comments *services.CommentService
	store    storage.MediaStore
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService, store storage.MediaStore) *PostHandler {
	return &PostHandler{posts: posts, comments: comments, store: store}
}

// postRequest is accepted both as JSON and as multipart form with an
// optional "image" file part.
type postRequest struct {
	Content  *string         `json:"content" form:"content"`
	ImageURL *string         `json:"imageUrl" form:"imageUrl" binding:"omitempty,max=2048"`
	WallID   uint            `json:"wallId" form:"wallId"`
	Privacy  models.Privacy  `json:"privacy" form:"privacy"`
	Type     models.PostType `json:"type" form:"type"`
}

// upload stores the "image" file part when the request carries one. stored
// is set only when a new object was written.
func (h *PostHandler) upload(c *gin.Context, current *string) (url *string, stored bool, err error) {
	file, err := c.FormFile("image")
	if err != nil {
		return current, false, nil
	}

	saved, err := saveImage(c, h.store, file)
	if err != nil {
		return nil, false, err
	}
	return &saved, true, nil
}

// discard 帖子写入失败时删除刚上传的图片，避免孤儿对象
func (h *PostHandler) discard(c *gin.Context, url *string, stored bool) {
	if !stored {
		return
	}
	if err := h.store.Delete(context.WithoutCancel(c.Request.Context()), *url); err != nil {
		zap.L().Warn("清理上传图片失败", zap.String("url", *url), zap.Error(err))
	}
}

func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}
	imageURL, stored, err := h.upload(c, req.ImageURL)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), currentUser(c).ID, services.CreatePostInput{
		WallID:   req.WallID,
		Content:  req.Content,
		ImageURL: imageURL,
		Type:     req.Type,
		Privacy:  req.Privacy,
	})
	if err != nil {
		h.discard(c, imageURL, stored)
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (h *PostHandler) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	post, err := h.posts.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	var req postRequest
	if err := bind(c, &req); err != nil {
		apperr.HandleError(c, err)
		return
	}
	imageURL, stored, err := h.upload(c, req.ImageURL)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}

	post, err := h.posts.Update(c.Request.Context(), currentUser(c).ID, id, services.UpdatePostInput{
		Content:  req.Content,
		ImageURL: imageURL,
		Privacy:  req.Privacy,
	})
	if err != nil {
		h.discard(c, imageURL, stored)
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	post, err := h.posts.Delete(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// Comments 分页获取帖子的顶层评论（最新在前）
func (h *PostHandler) Comments(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	comments, count, err := h.comments.TopLevel(c.Request.Context(), currentUser(c).ID, id, pagination(c))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(comments, count))
}

func (h *PostHandler) Likes(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	likes, count, err := h.posts.Likes(c.Request.Context(), currentUser(c).ID, id, pagination(c))
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(likes, count))
}
