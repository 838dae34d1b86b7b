package auth

import "time"

// Config drives bearer token validation.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Claims is the validated identity attached to a request.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}
