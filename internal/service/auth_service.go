package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/config"
	"github.com/iliyamo/checklistpro/internal/model"
	"github.com/iliyamo/checklistpro/internal/repository"
	"github.com/iliyamo/checklistpro/internal/utils"
	"github.com/iliyamo/checklistpro/pkg/validator"
)

// AuthService covers signup, credential checks and token issuance.
type AuthService struct {
	cfg    config.Config
	users  *repository.UserRepo
	tokens *repository.TokenRepo
}

func NewAuthService(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthService {
	return &AuthService{cfg: cfg, users: u, tokens: t}
}

type SignupInput struct {
	Name     string `json:"name" form:"name" validate:"notblank,max=100"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Phone    string `json:"phone" form:"phone" validate:"phone10"`
	Username string `json:"username" form:"username" validate:"notblank,max=50"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenPair is an access token plus a raw refresh token.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	fields, err := validator.Fields(in)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("All fields are required and must be valid", fields)
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, apperr.Validation("All fields are required and must be valid",
			map[string]string{"password": "password cannot exceed 72 bytes"})
	}
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	u, err := s.users.Create(ctx, repository.NewUser{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Phone:        in.Phone,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("Server error", err)
	}
	return u, nil
}

// Authenticate checks a username/password pair.  Unknown users and wrong
// passwords produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, in LoginInput) (*model.User, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, apperr.InvalidInput("Username and password are required")
	}
	u, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			utils.BurnCompare(in.Password)
			return nil, apperr.Unauthenticated("Invalid credentials")
		}
		return nil, apperr.Internal("Server error", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return u, nil
}

// AccessToken issues a short-lived token for u.
func (s *AuthService) AccessToken(u *model.User) (utils.AccessToken, error) {
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, u.UserID, u.Username, s.cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, apperr.Internal("Issue access token failed", err)
	}
	return tok, nil
}

// IssuePair creates an access token and stores a new refresh token.
func (s *AuthService) IssuePair(ctx context.Context, u *model.User) (TokenPair, error) {
	access, err := s.AccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, apperr.Internal("Issue refresh token failed", err)
	}
	if err := s.tokens.Store(ctx, u.UserID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, apperr.Internal("Save refresh token failed", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Rotate consumes a refresh token and issues a new pair.  A token can be
// rotated once; replaying it is Unauthenticated.
func (s *AuthService) Rotate(ctx context.Context, raw string) (*model.User, TokenPair, error) {
	tok, err := s.tokens.Consume(ctx, utils.HashRefreshRaw(strings.TrimSpace(raw)))
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return nil, TokenPair{}, apperr.Unauthenticated("Invalid refresh token")
		}
		return nil, TokenPair{}, apperr.Internal("Server error", err)
	}
	u, err := s.users.GetByUserID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, TokenPair{}, apperr.Unauthenticated("Invalid refresh token")
		}
		return nil, TokenPair{}, apperr.Internal("Server error", err)
	}
	pair, err := s.IssuePair(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Logout revokes one refresh token when raw is given, otherwise every
// refresh token of who.
func (s *AuthService) Logout(ctx context.Context, who model.Identity, raw string) error {
	if raw = strings.TrimSpace(raw); raw != "" {
		if _, err := s.tokens.Consume(ctx, utils.HashRefreshRaw(raw)); err != nil {
			if errors.Is(err, repository.ErrTokenInvalid) {
				return apperr.Unauthenticated("Invalid refresh token")
			}
			return apperr.Internal("Logout failed", err)
		}
		return nil
	}
	if who.Anonymous() {
		return apperr.InvalidInput("Provide Authorization header or refreshToken")
	}
	if _, err := s.tokens.RevokeUser(ctx, who.UserID); err != nil {
		return apperr.Internal("Logout failed", err)
	}
	return nil
}

// PurgeTokens deletes refresh tokens that expired more than a day ago.
func (s *AuthService) PurgeTokens(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpired(ctx, time.Now().Add(-24*time.Hour))
}

// Resolve verifies an access token and confirms its user still exists.
func (s *AuthService) Resolve(ctx context.Context, raw string) (model.Identity, error) {
	claims, err := utils.ParseAccessToken(s.cfg.JWTSecret, raw)
	if err != nil {
		return model.Identity{}, apperr.Unauthenticated("Invalid token")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	u, err := s.users.GetByUserID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Identity{}, apperr.Unauthenticated("Invalid token")
		}
		return model.Identity{}, apperr.Internal("Server error", err)
	}
	return u.Identity(), nil
}
