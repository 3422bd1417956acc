package model

import "time"

// Login types.
const (
	LoginTypePassword = "PASSWORD"
	LoginTypePIN      = "PIN"
)

// User statuses.
const (
	UserStatusActive   = "ACTIVE"
	UserStatusDisabled = "DISABLED"
)

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             *string   `json:"email"`
	Phone             *string   `json:"phone"`
	LoginType         string    `json:"loginType"`
	PINHash           *string   `json:"-"`
	PasswordHash      *string   `json:"-"`
	Age               *int      `json:"age"`
	IsChild           bool      `json:"isChild"`
	EmailVerified     bool      `json:"emailVerified"`
	Status            string    `json:"status"`
	Avatar            string    `json:"avatar"`
	ChorePoints       int       `json:"chorePoints"`
	SecurityQuestion1 *string   `json:"-"`
	SecurityAnswer1   *string   `json:"-"`
	SecurityQuestion2 *string   `json:"-"`
	SecurityAnswer2   *string   `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
}
