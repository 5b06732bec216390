package domain

import "time"

type LocalCredential struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	PasswordHash      string     `gorm:"size:1024;not null" json:"-"`
	ResetHash         *string    `gorm:"size:64;index" json:"-"`
	ResetStartedAt    *time.Time `json:"-"`
	ActivateHash      *string    `gorm:"size:64;index" json:"-"`
	ActivateStartedAt *time.Time `json:"-"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// SetResetToken writes the token and its issuance time together.
func (c *LocalCredential) SetResetToken(token string, issuedAt time.Time) {
	at := issuedAt.UTC()
	c.ResetHash = &token
	c.ResetStartedAt = &at
}

func (c *LocalCredential) ClearResetToken() {
	c.ResetHash = nil
	c.ResetStartedAt = nil
}

func (c *LocalCredential) SetActivationToken(token string, issuedAt time.Time) {
	at := issuedAt.UTC()
	c.ActivateHash = &token
	c.ActivateStartedAt = &at
}

func (c *LocalCredential) ClearActivationToken() {
	c.ActivateHash = nil
	c.ActivateStartedAt = nil
}

func (c *LocalCredential) SetPasswordHash(hash string, at time.Time) {
	changed := at.UTC()
	c.PasswordHash = hash
	c.PasswordChangedAt = &changed
}
