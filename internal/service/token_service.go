package service

import (
	"fmt"
	"time"

	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/security"
)

// TokenService issues the bearer access tokens handed out after login.
type TokenService struct {
	jwtMgr    *security.JWTManager
	accessTTL time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, accessTTL time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, accessTTL: accessTTL}
}

func (s *TokenService) Issue(user *domain.User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, fmt.Errorf("issue access token: missing user")
	}
	access, expiresAt, err := s.jwtMgr.SignAccessToken(user.ID, user.RoleNames(), s.accessTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue access token: %w", err)
	}
	return access, expiresAt, nil
}

func (s *TokenService) Parse(raw string) (*security.Claims, error) {
	return s.jwtMgr.ParseAccessToken(raw)
}
