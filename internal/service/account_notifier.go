package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

type AccountNotification struct {
	UserID    uint
	Email     string
	Username  string
	Token     string
	ExpiresAt *time.Time
	Link      string
}

type AccountNotifier interface {
	SendActivation(ctx context.Context, notification AccountNotification) error
	SendPasswordReset(ctx context.Context, notification AccountNotification) error
}

// DevAccountNotifier writes notifications to the log instead of sending mail.
// Outside development the token and link are masked.
type DevAccountNotifier struct {
	logger      *slog.Logger
	revealToken bool
}

func NewDevAccountNotifier(logger *slog.Logger, revealToken bool) *DevAccountNotifier {
	return &DevAccountNotifier{logger: logger, revealToken: revealToken}
}

func (n *DevAccountNotifier) SendActivation(ctx context.Context, notification AccountNotification) error {
	n.log(ctx, "account activation token issued", notification)
	return nil
}

func (n *DevAccountNotifier) SendPasswordReset(ctx context.Context, notification AccountNotification) error {
	n.log(ctx, "password reset token issued", notification)
	return nil
}

func (n *DevAccountNotifier) log(ctx context.Context, msg string, notification AccountNotification) {
	link := notification.Link
	if strings.TrimSpace(link) == "" {
		link = fmt.Sprintf("token=%s", notification.Token)
	}
	if !n.revealToken {
		link = maskToken(link, notification.Token)
	}
	attrs := []any{
		"user_id", notification.UserID,
		"email", notification.Email,
		"link", link,
	}
	if notification.ExpiresAt != nil {
		attrs = append(attrs, "expires_at", notification.ExpiresAt.UTC())
	}
	n.logger.InfoContext(ctx, msg, attrs...)
}

func maskToken(s, token string) string {
	if len(token) <= 4 {
		return s
	}
	return strings.ReplaceAll(s, token, token[:4]+strings.Repeat("*", len(token)-4))
}

// buildTokenLink appends token and email as query parameters to base. An empty
// base yields "".
func buildTokenLink(base, token, email string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse link base: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
