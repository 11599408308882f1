package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxUploadSize = 10 << 20

var (
	ErrNotImage = errors.New("file is not a supported image")
	ErrTooLarge = errors.New("file is too large")
)

var ErrForeignURL = errors.New("url does not belong to this store")

// MediaStore persists an uploaded image and returns the URL clients load it from.
type MediaStore interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	// Delete removes an object by the URL Save returned.
	Delete(ctx context.Context, url string) error
}

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// keyFromURL 从 Save 返回的 url 还原对象 key
func keyFromURL(prefix, url string) (string, error) {
	key, ok := strings.CutPrefix(url, prefix)
	if !ok || !strings.HasPrefix(key, "media/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return key, nil
}

// objectKey 校验文件并生成存储路径: media/2006/01/<uuid>.<ext>
func objectKey(file *multipart.FileHeader, now time.Time) (string, error) {
	if file.Size > MaxUploadSize {
		return "", ErrTooLarge
	}
	contentType := file.Header.Get("Content-Type")
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" || ext == ".jpeg" {
		// 根据 MIME 类型推断扩展名
		ext = imageTypes[contentType]
	}

	known := false
	for _, e := range imageTypes {
		if e == ext {
			known = true
			break
		}
	}
	if !known {
		return "", fmt.Errorf("%w: %s", ErrNotImage, file.Filename)
	}

	return path.Join("media", now.Format("2006/01"), uuid.NewString()+ext), nil
}
