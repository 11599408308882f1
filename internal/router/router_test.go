package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"socialwall/internal/db/dbtest"
	"socialwall/internal/services"
	"socialwall/internal/storage"
	"socialwall/internal/utils"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiTest struct {
	t        *testing.T
	engine   *gin.Engine
	mediaDir string
}

func newAPI(t *testing.T) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := dbtest.Open(t)
	likes := services.NewLikeService(conn)
	agg := services.NewAggregator(conn, likes)
	mediaDir := t.TempDir()
	media, err := storage.NewLocalStore(mediaDir, "/uploads")
	require.NoError(t, err)

	engine := New(Deps{
		Auth:          services.NewAuthService(conn, utils.NewTokenIssuer("test-secret", time.Minute, time.Hour)),
		Likes:         likes,
		Comments:      services.NewCommentService(conn, likes),
		Posts:         services.NewPostService(conn, likes, agg),
		Feed:          services.NewFeedService(conn, agg),
		Friends:       services.NewFriendshipService(conn),
		Users:         services.NewUserService(conn),
		Media:         media,
		SessionSecret: "session-secret",
		SessionMaxAge: time.Hour,
	})
	return &apiTest{t: t, engine: engine, mediaDir: mediaDir}
}

type response struct {
	Code    int
	Body    map[string]any
	Cookies []*http.Cookie
}

func (a *apiTest) do(method, path, token string, body any, cookies ...*http.Cookie) response {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, token, cookies...)
}

func (a *apiTest) send(req *http.Request, token string, cookies ...*http.Cookie) response {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	resp := response{Code: w.Code, Cookies: w.Result().Cookies()}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp.Body), w.Body.String())
	}
	return resp
}

// signup registers and logs in a user, returning its id and access token.
func (a *apiTest) signup(first string) (uint, string) {
	a.t.Helper()
	email := strings.ToLower(first) + "@example.com"
	resp := a.do("POST", "/auth/register", "", map[string]any{
		"firstName": first, "lastName": "Test", "email": email, "password": "password123",
	})
	require.Equal(a.t, http.StatusCreated, resp.Code, resp.Body)

	resp = a.do("POST", "/auth/login", "", map[string]any{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusOK, resp.Code, resp.Body)
	user := resp.Body["user"].(map[string]any)
	return uint(user["id"].(float64)), resp.Body["accessToken"].(string)
}

func id(v any) uint {
	return uint(v.(map[string]any)["id"].(float64))
}

func TestCommentScenarios(t *testing.T) {
	api := newAPI(t)
	_, alice := api.signup("Alice")
	_, bob := api.signup("Bob")

	resp := api.do("POST", "/posts", alice, map[string]any{"content": "hi"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	post := resp.Body["post"].(map[string]any)
	postID := id(post)
	assert.Equal(t, float64(0), post["commentCount"])

	resp = api.do("POST", "/comments", bob, map[string]any{"postId": postID, "content": "nice"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	commentID := id(resp.Body["comment"])

	resp = api.do("GET", fmt.Sprintf("/posts/%d/comments?page=1&resultsPerPage=10", postID), alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resp.Body["count"])
	results := resp.Body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, float64(0), first["replyCount"])
	assert.Equal(t, float64(0), first["likeCount"])
	assert.Nil(t, first["likedByMe"])

	// Scenario 2: like twice
	resp = api.do("POST", "/likes", alice, map[string]any{"targetId": commentID, "targetType": "COMMENT"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	likeID := id(resp.Body["like"])
	resp = api.do("POST", "/likes", alice, map[string]any{"targetId": commentID, "targetType": "COMMENT"})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.NotEmpty(t, resp.Body["message"])

	resp = api.do("GET", fmt.Sprintf("/comments/%d", commentID), alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	comment := resp.Body["comment"].(map[string]any)
	assert.Equal(t, float64(1), comment["likeCount"])
	assert.Equal(t, float64(likeID), comment["likedByMe"])

	// Scenario 3: reply, tombstone the parent
	resp = api.do("POST", "/comments", alice, map[string]any{"postId": postID, "parentId": commentID, "content": "thanks"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	replyID := id(resp.Body["comment"])

	resp = api.do("PUT", fmt.Sprintf("/comments/%d", commentID), alice, map[string]any{"content": "mine now"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.do("PUT", fmt.Sprintf("/comments/%d/delete", commentID), bob, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	tomb := resp.Body["comment"].(map[string]any)
	assert.Equal(t, true, tomb["isDeleted"])
	assert.Nil(t, tomb["content"])

	resp = api.do("GET", fmt.Sprintf("/posts/%d/comments", postID), alice, nil)
	results = resp.Body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, float64(1), results[0].(map[string]any)["replyCount"])

	resp = api.do("GET", fmt.Sprintf("/comments/%d/replies", commentID), alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	results = resp.Body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, replyID, id(results[0]))

	// Unlike by id only works for the owner
	resp = api.do("DELETE", fmt.Sprintf("/likes/%d", likeID), bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = api.do("DELETE", fmt.Sprintf("/likes?targetId=%d&targetType=COMMENT", commentID), alice, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = api.do("DELETE", fmt.Sprintf("/likes?targetId=%d&targetType=COMMENT", commentID), alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestValidationErrorShape(t *testing.T) {
	api := newAPI(t)
	_, alice := api.signup("Alice")

	resp := api.do("POST", "/comments", alice, map[string]any{"postId": 42, "content": ""})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Validation failed", resp.Body["message"])
	errs := resp.Body["errors"].([]any)
	require.NotEmpty(t, errs)
	paths := []string{}
	for _, e := range errs {
		fe := e.(map[string]any)
		assert.NotEmpty(t, fe["msg"])
		paths = append(paths, fe["path"].(string))
	}
	assert.Contains(t, paths, "content")
	assert.Contains(t, paths, "postId")

	resp = api.do("POST", "/likes", alice, map[string]any{"targetId": 1, "targetType": "USER"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "targetType", resp.Body["errors"].([]any)[0].(map[string]any)["path"])

	resp = api.do("POST", "/auth/register", "", map[string]any{"firstName": "X", "lastName": "Y", "email": "nope", "password": "short"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Len(t, resp.Body["errors"], 2)
}

func TestAuthFlow(t *testing.T) {
	api := newAPI(t)

	resp := api.do("GET", "/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, map[string]any{"message": "Authentication required"}, resp.Body)

	api.do("POST", "/auth/register", "", map[string]any{
		"firstName": "Ann", "lastName": "Lee", "email": "ann@example.com", "password": "password123",
	})
	resp = api.do("POST", "/auth/login", "", map[string]any{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.do("POST", "/auth/login", "", map[string]any{"email": "ann@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotEmpty(t, resp.Cookies)
	session := resp.Cookies

	resp = api.do("POST", "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.do("POST", "/auth/refresh", "", nil, session...)
	require.Equal(t, http.StatusOK, resp.Code)
	token := resp.Body["accessToken"].(string)

	resp = api.do("GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	user := resp.Body["user"].(map[string]any)
	assert.Equal(t, "Ann", user["firstName"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "email")
}

func TestFeedWallAndFriends(t *testing.T) {
	api := newAPI(t)
	aliceID, alice := api.signup("Alice")
	bobID, bob := api.signup("Bob")

	resp := api.do("POST", "/posts", bob, map[string]any{"content": "hello", "wallId": aliceID})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.do("POST", "/friends/requests", bob, map[string]any{"userId": aliceID})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	resp = api.do("POST", "/friends/requests", bob, map[string]any{"userId": aliceID})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.do("GET", "/friends/requests", alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resp.Body["count"])

	resp = api.do("PUT", fmt.Sprintf("/friends/requests/%d", aliceID), bob, map[string]any{"action": "accept"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = api.do("PUT", fmt.Sprintf("/friends/requests/%d", bobID), alice, map[string]any{"action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = api.do("PUT", fmt.Sprintf("/friends/requests/%d", bobID), alice, map[string]any{"action": "accept"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)

	resp = api.do("POST", "/posts", bob, map[string]any{"content": "hello", "wallId": aliceID, "privacy": "FRIENDS_ONLY"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	postID := id(resp.Body["post"])

	resp = api.do("GET", fmt.Sprintf("/wall/%d", aliceID), alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resp.Body["count"])
	assert.Equal(t, postID, id(resp.Body["results"].([]any)[0]))

	resp = api.do("GET", "/feed?resultsPerPage=5", alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resp.Body["count"])
	assert.Len(t, resp.Body["feed"], 1)

	resp = api.do("GET", "/friends", alice, nil)
	assert.Equal(t, float64(1), resp.Body["count"])

	resp = api.do("DELETE", fmt.Sprintf("/posts/%d", postID), alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = api.do("DELETE", fmt.Sprintf("/posts/%d", postID), bob, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = api.do("GET", fmt.Sprintf("/posts/%d", postID), bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.do("GET", "/wall/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMultipartPostUpload(t *testing.T) {
	api := newAPI(t)
	_, alice := api.signup("Alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("type", "PROFILE_PIC_UPDATE"))
	require.NoError(t, w.WriteField("privacy", "PUBLIC"))
	part, err := w.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := api.send(req, alice)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)

	post := resp.Body["post"].(map[string]any)
	imageURL := post["imageUrl"].(string)
	assert.True(t, strings.HasPrefix(imageURL, "/uploads/media/"))
	assert.Equal(t, "PROFILE_PIC_UPDATE", post["type"])

	author := post["author"].(map[string]any)
	assert.Equal(t, imageURL, author["profilePicUrl"])
}

// storedFiles lists every object written under the media directory.
func (a *apiTest) storedFiles() []string {
	a.t.Helper()
	var files []string
	err := filepath.WalkDir(a.mediaDir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return err
	})
	require.NoError(a.t, err)
	return files
}

func TestRejectedPostLeavesNoUpload(t *testing.T) {
	api := newAPI(t)
	_, alice := api.signup("Alice")
	_, bob := api.signup("Bob")

	resp := api.do("POST", "/posts", alice, map[string]any{"content": "hi"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	postID := id(resp.Body["post"])

	form := func(method, path, content string) *http.Request {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("content", content))
		part, err := w.CreateFormFile("image", "pic.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req
	}

	// not the author
	resp = api.send(form("PUT", fmt.Sprintf("/posts/%d", postID), "mine now"), bob)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Empty(t, api.storedFiles())

	// fails validation after the image was accepted
	resp = api.send(form("POST", "/posts", strings.Repeat("x", services.MaxPostLength+1)), alice)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, api.storedFiles())

	resp = api.send(form("PUT", fmt.Sprintf("/posts/%d", postID), "with a picture"), alice)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Len(t, api.storedFiles(), 1)
}

func TestUserProfile(t *testing.T) {
	api := newAPI(t)
	aliceID, alice := api.signup("Alice")
	bobID, bob := api.signup("Bob")

	resp := api.do("GET", fmt.Sprintf("/users/%d", bobID), alice, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Equal(t, "none", resp.Body["relation"])
	assert.Equal(t, float64(0), resp.Body["friendCount"])

	resp = api.do("POST", "/friends/requests", alice, map[string]any{"userId": bobID})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	resp = api.do("GET", fmt.Sprintf("/users/%d", aliceID), bob, nil)
	assert.Equal(t, "incoming", resp.Body["relation"])

	resp = api.do("PUT", fmt.Sprintf("/friends/requests/%d", aliceID), bob, map[string]any{"action": "accept"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	resp = api.do("POST", "/posts", bob, map[string]any{"content": "friends only", "privacy": "FRIENDS_ONLY"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)

	resp = api.do("GET", fmt.Sprintf("/users/%d", bobID), alice, nil)
	assert.Equal(t, "friends", resp.Body["relation"])
	assert.Equal(t, float64(1), resp.Body["friendCount"])
	assert.Equal(t, float64(1), resp.Body["postCount"])

	resp = api.do("PUT", "/users/me", bob, map[string]any{"firstName": "Robert"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Equal(t, "Robert", resp.Body["user"].(map[string]any)["firstName"])

	// the cached user is dropped, so /auth/me sees the new name
	resp = api.do("GET", "/auth/me", bob, nil)
	assert.Equal(t, "Robert", resp.Body["user"].(map[string]any)["firstName"])

	resp = api.do("PUT", "/users/me", bob, map[string]any{"lastName": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.do("GET", "/users/999", bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMediaUpload(t *testing.T) {
	api := newAPI(t)
	_, alice := api.signup("Alice")

	upload := func(name string, data []byte) response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("image", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/media", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return api.send(req, alice)
	}

	resp := upload("pic.jpg", []byte("\xff\xd8\xff fake"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	url := resp.Body["url"].(string)
	assert.True(t, strings.HasSuffix(url, ".jpg"), url)

	// the url can be attached to a comment
	resp = api.do("POST", "/posts", alice, map[string]any{"content": "hi"})
	postID := id(resp.Body["post"])
	resp = api.do("POST", "/comments", alice, map[string]any{"postId": postID, "imageUrl": url})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	assert.Equal(t, url, resp.Body["comment"].(map[string]any)["imageUrl"])

	resp = upload("notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.do("POST", "/media", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
