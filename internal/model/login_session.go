package model

import (
	"time"
)

// Stored statuses of a login session.
// Expired and invalid are never stored, they are inferred at read time.
const (
	LoginSessionPending   = "pending"
	LoginSessionConfirmed = "confirmed"
)

// A LoginSession represents a database record.
// It holds one QR login attempt from creation to confirmation.
type LoginSession struct {
	Base `msgpack:",inline" storm:"inline"`

	Token    string    `msgpack:"token"     storm:"unique"`
	Status   string    `msgpack:"status"    storm:"index"`
	UserID   string    `msgpack:"user_id"`
	ExpireAt time.Time `msgpack:"expire_at"`

	// One-time sign-in credential, minted once at confirmation.
	LoginToken string     `msgpack:"login_token,omitempty"`
	RedeemedAt *time.Time `msgpack:"redeemed_at,omitempty"`
}

// Expired returns true when the validity window has passed,
// whatever the stored status is.
func (s *LoginSession) Expired() bool {
	return s.ExpireAt.Before(time.Now())
}
