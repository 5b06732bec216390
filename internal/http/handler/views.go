package handler

import (
	"time"

	"github.com/memberkit/credential-service/internal/domain"
)

// accountView is the owner's private view of their account.
type accountView struct {
	ID             uint       `json:"id"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	Avatar         string     `json:"avatar"`
	AvatarURL      string     `json:"avatar_url"`
	ProfilePath    string     `json:"profile_path"`
	Active         bool       `json:"active"`
	ForcePassReset bool       `json:"force_pass_reset"`
	Roles          []string   `json:"roles"`
	Permissions    []string   `json:"permissions"`
	Location       string     `json:"location,omitempty"`
	Country        string     `json:"country,omitempty"`
	DateOfBirth    string     `json:"date_of_birth,omitempty"`
	DOBDisplay     int        `json:"dob_display"`
	CreatedAt      time.Time  `json:"created_at"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
}

func newAccountView(u *domain.User) accountView {
	perms, _ := u.PermissionList()
	if perms == nil {
		perms = []string{}
	}
	v := accountView{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Name:           u.Name,
		Avatar:         u.Avatar(0),
		AvatarURL:      u.AvatarURL,
		ProfilePath:    u.ProfilePath(),
		Active:         u.IsActivated(),
		ForcePassReset: u.ForcePassReset,
		Roles:          u.RoleNames(),
		Permissions:    perms,
		DOBDisplay:     int(domain.DOBDisplayNone),
		CreatedAt:      u.CreatedAt,
		LastSeenAt:     u.LastSeenAt,
	}
	if s := u.Setting; s != nil {
		v.Location = s.Location
		v.Country = s.Country
		v.DOBDisplay = int(s.DOBDisplay)
		if s.DateOfBirth != nil {
			v.DateOfBirth = s.DateOfBirth.UTC().Format("2006-01-02")
		}
	}
	return v
}

// adminUserView adds moderation state to the private view.
type adminUserView struct {
	accountView
	Banned    bool   `json:"banned"`
	BanReason string `json:"ban_reason,omitempty"`
}

func newAdminUserView(u *domain.User) adminUserView {
	return adminUserView{
		accountView: newAccountView(u),
		Banned:      u.IsBanned(),
		BanReason:   u.StatusMessage,
	}
}
