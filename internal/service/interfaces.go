package service

import (
	"context"

	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/repository"
)

type AccountServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Activate(ctx context.Context, email, token string) error
	ResendActivation(ctx context.Context, email string) error
	Login(ctx context.Context, identity, password, ua, ip string) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email, ip string) error
	ResetPassword(ctx context.Context, email, token, newPassword, ip string) error
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	Ban(ctx context.Context, userID uint, reason string) (*domain.User, error)
	Unban(ctx context.Context, userID uint) (*domain.User, error)
	SetPermissions(ctx context.Context, userID uint, permissions []string) (*domain.User, error)
}

type UserServiceInterface interface {
	GetByID(id uint) (*domain.User, error)
	List(page, pageSize int) (repository.PageResult[domain.User], error)
	Profile(ctx context.Context, username, section string) (*MemberProfile, error)
	UpdateAccount(ctx context.Context, userID uint, in AccountUpdate) (*domain.User, error)
}

var (
	_ AccountServiceInterface = (*AccountService)(nil)
	_ UserServiceInterface    = (*UserService)(nil)
)
