package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the access tier of an account.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	Username         string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email            string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	FirstName        string    `gorm:"size:150" json:"first_name"`
	LastName         string    `gorm:"size:150" json:"last_name"`
	Bio              *string   `gorm:"type:text" json:"bio"`
	Role             Role      `gorm:"size:16;default:'user';not null" json:"role"`
	IsStaff          bool      `gorm:"not null;default:false" json:"-"` // superuser flag, only set by reviewhubctl
	ConfirmationCode string    `gorm:"size:4" json:"-"`                 // never serialized
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BeforeCreate hook to set UUID and default role before creating a User
func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	return
}

// IsAdmin is true for the admin role and for staff accounts regardless of role.
func (user *User) IsAdmin() bool {
	return user.Role == RoleAdmin || user.IsStaff
}

// IsModerator does not include admins.
func (user *User) IsModerator() bool {
	return user.Role == RoleModerator
}

func (User) TableName() string {
	return "users"
}
