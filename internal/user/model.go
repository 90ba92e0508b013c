package user

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Image        string    `json:"image,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

type Registration struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
	// Staff выставляется только административной командой, HTTP слой его не заполняет.
	Staff bool
}

type ProfileUpdate struct {
	FirstName string
	LastName  string
	Image     string
}
