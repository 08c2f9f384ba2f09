// Package qrlogin drives the cross-device QR login flow: one device creates a
// short-lived login session rendered as a QR code, an already-authenticated
// device confirms it, and the first device polls the session status until it
// can redeem a one-time sign-in credential.
package qrlogin

// Statuses reported to pollers.
// Expired and invalid are recomputed at read time, they are never stored.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusExpired   = "expired"
	StatusInvalid   = "invalid"
	StatusError     = "error"
)

// A Status is the state of a login session as seen by the initiator's poller.
type Status struct {
	Status string `json:"status"`
	// LoginURL is the one-time sign-in link, present once confirmed.
	LoginURL string `json:"login_url,omitempty"`
}
