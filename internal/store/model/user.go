package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User is the OAuth identity a browser session maps to. The classroom
// token reference lets the import endpoint act on the user's behalf.
type User struct {
	ID             uuid.UUID `gorm:"primaryKey;type:VARCHAR(255);"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      *time.Time
	Username       string `gorm:"not null;uniqueIndex:users_org_username_idx"`
	OrgID          string `gorm:"not null;uniqueIndex:users_org_username_idx"`
	Email          string
	DisplayName    string
	ClassroomToken *string `gorm:"type:TEXT"`
	LastLoginAt    *time.Time
}

func (u User) String() string {
	val, _ := json.Marshal(u)
	return string(val)
}
