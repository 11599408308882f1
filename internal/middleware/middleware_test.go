package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Authenticate(token string) (uint, error) {
	args := m.Called(token)
	return args.Get(0).(uint), args.Error(1)
}

func (m *mockAuth) UserByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newEngine(auth Authenticator, cache *UserCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryMiddleware(), RequestLogger())
	r.GET("/me", AuthRequired(auth, cache), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	auth := new(mockAuth)
	auth.On("Authenticate", "good").Return(uint(7), nil)
	auth.On("Authenticate", "bad").Return(uint(0), apperr.New(apperr.ErrInvalidToken, "Invalid or expired token"))
	auth.On("UserByID", mock.Anything, uint(7)).Return(&models.User{ID: 7, FirstName: "Ann"}, nil).Once()

	r := newEngine(auth, NewUserCache())

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"valid token cached", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})
	}
	// UserByID ran once; the second valid request came from the cache
	auth.AssertExpectations(t)
}

func TestAuthRequiredUnknownUser(t *testing.T) {
	auth := new(mockAuth)
	auth.On("Authenticate", "orphan").Return(uint(9), nil)
	auth.On("UserByID", mock.Anything, uint(9)).Return(nil, apperr.NotFound("User"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer orphan")
	newEngine(auth, NewUserCache()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecovery(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	newEngine(new(mockAuth), NewUserCache()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
}
