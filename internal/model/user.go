package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleLawyer    Role = "lawyer"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// ParseRole maps a free-form string to one of the known roles.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleUser, RoleLawyer, RoleAdmin, RoleModerator:
		return r, nil
	case "":
		return RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil && r != ""
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;index;default:user" json:"role"`
	Phone        string    `gorm:"size:32" json:"phone,omitempty"`
	Address      string    `gorm:"size:255" json:"address,omitempty"`
	City         string    `gorm:"size:64;index" json:"city,omitempty"`
	IsVerified   bool      `gorm:"not null" json:"is_verified"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
