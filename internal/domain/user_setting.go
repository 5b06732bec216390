package domain

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type DOBDisplay int

const (
	DOBDisplayBoth DOBDisplay = 1
	DOBDisplayNone DOBDisplay = 2
	DOBDisplayAge  DOBDisplay = 3
)

func (d DOBDisplay) Valid() bool {
	return d == DOBDisplayBoth || d == DOBDisplayNone || d == DOBDisplayAge
}

type UserSetting struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	UserID      uint       `gorm:"uniqueIndex;not null" json:"-"`
	Location    string     `gorm:"size:255" json:"location"`
	Country     string     `gorm:"size:2" json:"country"`
	DateOfBirth *time.Time `json:"-"`
	DOBDisplay  DOBDisplay `gorm:"not null;default:2" json:"dob_display"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// CountryName resolves an ISO 3166 alpha-2 code to its English name.
// Unknown codes yield "".
func CountryName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return ""
	}
	return display.English.Regions().Name(region)
}

// LocationString joins the free-text location and the country name.
func (u *User) LocationString() string {
	if u.Setting == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if loc := strings.TrimSpace(u.Setting.Location); loc != "" {
		parts = append(parts, loc)
	}
	if name := CountryName(u.Setting.Country); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

// Age returns the completed years at now, or -1 when no birth date is stored.
func (s *UserSetting) Age(now time.Time) int {
	if s == nil || s.DateOfBirth == nil {
		return -1
	}
	dob := s.DateOfBirth.UTC()
	now = now.UTC()
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
