package auth

import "time"

// Claims is the identity carried by a verified token.
// Role is a hint only; authorization reloads the stored user.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// Token is a signed bearer token handed back to clients.
type Token struct {
	Value     string
	ExpiresAt time.Time
}
