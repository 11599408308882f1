package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a real multipart.FileHeader by round-tripping a form.
func fileHeader(t *testing.T, name, contentType string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(MaxUploadSize))
	return req.MultipartForm.File["image"][0]
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	key, err := objectKey(fileHeader(t, "cat.PNG", "image/png", []byte("x")), now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "media/2024/03/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	key, err = objectKey(fileHeader(t, "blob", "image/webp", []byte("x")), now)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".webp"))

	_, err = objectKey(fileHeader(t, "notes.txt", "text/plain", []byte("x")), now)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), fileHeader(t, "me.jpg", "image/jpeg", []byte("jpeg-bytes")))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/media/"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/"))))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalStoreDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), fileHeader(t, "me.jpg", "image/jpeg", []byte("jpeg-bytes")))
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), url))

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/"))))
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, store.Delete(context.Background(), url))
	assert.ErrorIs(t, store.Delete(context.Background(), "/uploads/../secret"), ErrForeignURL)
	assert.ErrorIs(t, store.Delete(context.Background(), "https://elsewhere/media/x.png"), ErrForeignURL)
}

type mockS3 struct {
	s3iface.S3API
	mock.Mock
}

func (m *mockS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func TestS3StoreDelete(t *testing.T) {
	m := new(mockS3)
	m.On("DeleteObjectWithContext", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.StringValue(in.Bucket) == "media-bucket" &&
			aws.StringValue(in.Key) == "media/2024/03/abc.png"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	store := &S3Store{s3: m, bucket: "media-bucket"}
	require.NoError(t, store.Delete(context.Background(), "https://media-bucket.s3.amazonaws.com/media/2024/03/abc.png"))
	assert.ErrorIs(t, store.Delete(context.Background(), "https://other.s3.amazonaws.com/media/x.png"), ErrForeignURL)
	m.AssertExpectations(t)
}

func TestS3StoreSave(t *testing.T) {
	m := new(mockS3)
	m.On("PutObjectWithContext", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.StringValue(in.Bucket) == "media-bucket" &&
			aws.StringValue(in.ContentType) == "image/gif" &&
			strings.HasSuffix(aws.StringValue(in.Key), ".gif")
	})).Return(&s3.PutObjectOutput{}, nil)

	store := &S3Store{s3: m, bucket: "media-bucket"}
	url, err := store.Save(context.Background(), fileHeader(t, "fun.gif", "image/gif", []byte("GIF89a")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://media-bucket.s3.amazonaws.com/media/"))
	m.AssertExpectations(t)
}
