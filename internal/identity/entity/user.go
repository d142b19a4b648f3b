package entity

import "time"

// User is the locally stored identity record.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type NewUser struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}
