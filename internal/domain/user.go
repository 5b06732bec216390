package domain

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	UserStatusActive = "active"
	UserStatusBanned = "banned"

	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"

	defaultAvatarSize = 120
)

type User struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Email          string       `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username       string       `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Name           string       `gorm:"size:255" json:"name"`
	AvatarURL      string       `gorm:"size:1024" json:"avatar_url"`
	Active         bool         `gorm:"not null;default:false" json:"active"`
	ForcePassReset bool         `gorm:"not null;default:false" json:"force_pass_reset"`
	Status         string       `gorm:"size:32;index:idx_users_status" json:"status"`
	StatusMessage  string       `gorm:"size:255" json:"status_message,omitempty"`
	Permissions    string       `gorm:"type:text" json:"-"`
	LastSeenAt     *time.Time   `json:"last_seen_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Roles          []Role       `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Setting        *UserSetting `gorm:"foreignKey:UserID" json:"setting,omitempty"`
}

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) IsActivated() bool { return u.Active }

// Ban marks the account banned. The reason is shown to the member on login.
func (u *User) Ban(reason string) {
	u.Status = UserStatusBanned
	u.StatusMessage = strings.TrimSpace(reason)
}

// Unban clears both the status and the reason.
func (u *User) Unban() {
	u.Status = ""
	u.StatusMessage = ""
}

func (u *User) IsBanned() bool { return u.Status == UserStatusBanned }

func (u *User) PermissionList() ([]string, error) {
	if strings.TrimSpace(u.Permissions) == "" {
		return []string{}, nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(u.Permissions), &perms); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

// SetPermissions stores perms as JSON text. A nil slice is ignored so that
// partial updates do not wipe existing grants.
func (u *User) SetPermissions(perms []string) error {
	if perms == nil {
		return nil
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	u.Permissions = string(raw)
	return nil
}

func (u *User) HasPermission(name string) bool {
	perms, err := u.PermissionList()
	if err != nil {
		return false
	}
	for _, p := range perms {
		if p == name {
			return true
		}
	}
	return false
}

func (u *User) Avatar(size int) string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	if size <= 0 {
		size = defaultAvatarSize
	}
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(u.Email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=wavatar", hex.EncodeToString(sum[:]), size)
}

func (u *User) ProfilePath() string {
	return "/members/" + url.PathEscape(u.Username)
}

func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r.Name == RoleSuperadmin || r.Name == RoleAdmin {
			return true
		}
	}
	return false
}
