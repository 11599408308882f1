package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"socialwall/internal/apperr"
	"socialwall/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImageHandler 图片上传，评论配图先上传再把 url 放进评论
type ImageHandler struct {
	store storage.MediaStore
}

func NewImageHandler(store storage.MediaStore) *ImageHandler {
	return &ImageHandler{store: store}
}

// Upload 处理图片上传请求 (POST /media)
func (h *ImageHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		apperr.HandleError(c, apperr.Validation(apperr.Field("image", "An image file is required", nil)))
		return
	}
	url, err := saveImage(c, h.store, file)
	if err != nil {
		apperr.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func saveImage(c *gin.Context, store storage.MediaStore, file *multipart.FileHeader) (string, error) {
	url, err := store.Save(c.Request.Context(), file)
	switch {
	case errors.Is(err, storage.ErrNotImage), errors.Is(err, storage.ErrTooLarge):
		return "", apperr.Validation(apperr.Field("image", err.Error(), file.Filename))
	case err != nil:
		return "", apperr.Wrap(apperr.ErrStorage, "upload failed", err)
	}
	zap.L().Info("image uploaded",
		zap.String("url", url),
		zap.Int64("size", file.Size),
		zap.Uint("user_id", currentUser(c).ID))
	return url, nil
}
