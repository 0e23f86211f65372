package user

import (
	"slices"
	"time"
)

// Permission is a capability granted to an authenticated user.
type Permission string

const (
	PermissionTasksRead  Permission = "tasks:read"
	PermissionTasksWrite Permission = "tasks:write"
)

// DefaultPermissions are granted to every registered user.
func DefaultPermissions() []Permission {
	return []Permission{PermissionTasksRead, PermissionTasksWrite}
}

// User represents an account that owns tasks.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;not null;size:15"`
	FullName     string `gorm:"not null;size:36"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims represents the identity carried by a validated access token.
type Claims struct {
	UserID      string       `json:"user_id"`
	Username    string       `json:"username"`
	Permissions []Permission `json:"permissions"`
}

// Has reports whether the claims grant p.
func (c *Claims) Has(p Permission) bool {
	return slices.Contains(c.Permissions, p)
}
