package service

import (
	"context"
	"time"

	"github.com/xxxsen/mpan/internal/model"
	appErr "github.com/xxxsen/mpan/internal/pkg/errors"
	"github.com/xxxsen/mpan/internal/pkg/jwt"
	"github.com/xxxsen/mpan/internal/pkg/password"
	"github.com/xxxsen/mpan/internal/repo"
)

type AuthService struct {
	users     *repo.UserRepo
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl}
}

func (s *AuthService) Login(ctx context.Context, username, plainPassword string) (*model.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Verify(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Username, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
