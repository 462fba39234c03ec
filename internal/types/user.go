package types

import (
	"time"
)

// User is an account record. PasswordHash is only ever produced by the
// credential service and never leaves the server.
type User struct {
	ID           int64     `json:"id" example:"1"`
	Email        string    `json:"email" example:"alice@example.com"` // Unique across all users.
	Username     string    `json:"username" example:"alice"`          // Not required to be unique.
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is what a successful login reveals.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserDeletion reports a cascading user delete.
type UserDeletion struct {
	User             User
	DeletedCardCount int
}

type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"Str0ngP@ss!"`
}

type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"Str0ngP@ss!"`
}

// Response is a generic message body.
type Response struct {
	Message string `json:"message" example:"Operation successful"`
}
