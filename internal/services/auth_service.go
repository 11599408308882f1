package services

import (
	"context"
	"errors"
	"socialwall/internal/apperr"
	"socialwall/internal/models"
	"socialwall/internal/utils"
	"strings"

	"gorm.io/gorm"
)

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Session is what a successful login hands back to the handler.
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	db     *gorm.DB
	tokens *utils.TokenIssuer
}

func NewAuthService(conn *gorm.DB, tokens *utils.TokenIssuer) *AuthService {
	return &AuthService{db: conn, tokens: tokens}
}

// Register 创建新用户，邮箱统一转小写
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, dbErr(err)
	}
	if count > 0 {
		return nil, apperr.Validation(apperr.Field("email", "Email is already in use", email))
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user := models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     email,
		Password:  hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation(apperr.Field("email", "Email is already in use", email))
		}
		return nil, dbErr(err)
	}
	return &user, nil
}

// Login checks credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrInvalidCredentials, "Invalid email or password")
	}
	if err != nil {
		return nil, dbErr(err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, apperr.New(apperr.ErrInvalidCredentials, "Invalid email or password")
	}
	return s.issue(&user)
}

// Refresh exchanges a refresh token for a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := s.tokens.Parse(refreshToken, utils.TokenRefresh)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidToken, "Invalid or expired session", err)
	}
	user, err := s.UserByID(ctx, userID)
	if apperr.Is(err, apperr.ErrNotFound) {
		return nil, apperr.New(apperr.ErrInvalidToken, "Invalid or expired session")
	}
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Authenticate resolves a bearer access token to a user id.
func (s *AuthService) Authenticate(accessToken string) (uint, error) {
	userID, err := s.tokens.Parse(accessToken, utils.TokenAccess)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrInvalidToken, "Invalid or expired token", err)
	}
	return userID, nil
}

func (s *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User")
	}
	return &user, nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	access, err := s.tokens.AccessToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := s.tokens.RefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}
