package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"socialwall/internal/models"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves login/refresh with a cookie and one comments route that
// only accepts the current access token.
type fakeAPI struct {
	current      atomic.Value
	refreshes    atomic.Int32
	refreshFails bool
	rejectAll    bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	f.current.Store("token-1")
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "socialwall_session", Value: "refresh", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"accessToken": f.current.Load(), "user": map[string]any{"id": 7}})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		if _, err := r.Cookie("socialwall_session"); err != nil || f.refreshFails {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid or expired session"})
			return
		}
		f.current.Store("token-2")
		writeJSON(w, http.StatusOK, map[string]any{"accessToken": "token-2"})
	})
	mux.HandleFunc("/posts/1/comments", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectAll || r.Header.Get("Authorization") != "Bearer "+f.current.Load().(string) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid or expired token"})
			return
		}
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("resultsPerPage"))
		writeJSON(w, http.StatusOK, map[string]any{
			"results": []map[string]any{{"id": 3, "postId": 1, "content": "hi", "replyCount": 2}},
			"count":   11,
		})
	})
	mux.HandleFunc("/comments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  []map[string]any{{"type": "field", "msg": "Content or image is required", "path": "content", "location": "body"}},
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestLoginAndList(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)
	ctx := context.Background()

	user, err := c.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)

	page, err := c.PostComments(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, uint(3), page.Results[0].ID)
	assert.Equal(t, int64(2), page.Results[0].ReplyCount)
	assert.Zero(t, api.refreshes.Load())
}

func TestExpiredTokenRefreshesOnce(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)
	api.rejectAll = true

	// 刷新后仍然 401，只重试一次
	_, err = c.PostComments(ctx, 1, 2, 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())
	assert.Equal(t, int32(1), api.refreshes.Load())
}

func TestRefreshThenRetrySucceeds(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)
	c.SetToken("stale")

	page, err := c.PostComments(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Results, 1)
	assert.Equal(t, int32(1), api.refreshes.Load())
	assert.Equal(t, "token-2", c.token())
}

func TestRefreshFailureSurfacesOriginalError(t *testing.T) {
	api := &fakeAPI{refreshFails: true}
	c := newTestClient(t, api)
	c.SetToken("stale")

	_, err := c.PostComments(context.Background(), 1, 2, 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())
	assert.Equal(t, "Invalid or expired token", apiErr.Message)
}

func TestValidationError(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	_, err := c.CreateComment(context.Background(), 1, nil, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidation())
	assert.False(t, apiErr.IsConflict())

	msg, ok := apiErr.FieldMessage("content")
	assert.True(t, ok)
	assert.Equal(t, "Content or image is required", msg)
	assert.Contains(t, apiErr.Error(), "content")
}

func TestLikesQuery(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	require.NoError(t, c.Unlike(context.Background(), 5, models.TargetComment))
	assert.Equal(t, "DELETE /likes?targetId=5&targetType=COMMENT", got)
}
