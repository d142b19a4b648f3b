package event

const UserRegisteredDestination string = "identity.user_registered"

type UserRegisteredMessage struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
