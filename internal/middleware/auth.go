package middleware

import (
	"context"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"socialwall/internal/utils"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const CheckUserKey = "user"

// Authenticator resolves bearer tokens and loads the matching user.
type Authenticator interface {
	Authenticate(accessToken string) (uint, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// UserCache keeps recently loaded users so every request does not hit the
// users table.
type UserCache = utils.Cache[uint, *models.User]

func NewUserCache() *UserCache {
	return utils.NewCache[uint, *models.User](1024, time.Minute)
}

// AuthRequired parses the bearer token, loads the user and stores it under
// CheckUserKey. Any failure answers 401.
func AuthRequired(auth Authenticator, cache *UserCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apperr.Abort(c, apperr.Unauthorized("Authentication required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			apperr.Abort(c, apperr.Unauthorized("Invalid authorization header"))
			return
		}

		userID, err := auth.Authenticate(parts[1])
		if err != nil {
			apperr.Abort(c, err)
			return
		}

		user, ok := cache.Get(userID)
		if !ok {
			user, err = auth.UserByID(c.Request.Context(), userID)
			if apperr.Is(err, apperr.ErrNotFound) {
				zap.L().Warn("token for unknown user", zap.Uint("user_id", userID))
				apperr.Abort(c, apperr.New(apperr.ErrInvalidToken, "Invalid or expired token"))
				return
			}
			if err != nil {
				apperr.Abort(c, err)
				return
			}
			cache.Set(userID, user)
		}

		c.Set(CheckUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user AuthRequired stored on the context.
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(CheckUserKey).(*models.User)
}
