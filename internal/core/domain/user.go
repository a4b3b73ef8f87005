package domain

import "time"

// AuthMethod identifies how the user authenticated.
type AuthMethod string

const (
	AuthMethodTelegram   AuthMethod = "telegram"
	AuthMethodTonConnect AuthMethod = "ton_connect"
)

// User represents a marketplace user. The ID is the Telegram user id and is
// immutable; users are created on first authentication and never deleted by
// this subsystem.
type User struct {
	ID          int64      `json:"id"`
	DisplayName string     `json:"display_name"`
	Username    string     `json:"username"`
	AuthMethod  AuthMethod `json:"auth_method"`
	CreatedAt   time.Time  `json:"created_at"`
}
