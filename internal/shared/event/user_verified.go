package event

import "time"

const UserVerifiedDestination string = "identity.user_verified"

type UserVerifiedMessage struct {
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}
