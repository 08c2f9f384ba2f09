// Package qrclient is the HTTP client of a qrbridge server. It covers both
// sides of the QR login flow: the initiator (create, poll, redeem) and the
// confirmer (sign in, confirm).
package qrclient

import (
	"encoding/json"
	"io"
	"time"
)

type (
	// A LoginRequest is a freshly created login session as seen by the initiator.
	LoginRequest struct {
		Token        string    `json:"token"`
		EncodedToken string    `json:"encoded_token"`
		ConfirmURL   string    `json:"confirm_url"`
		ExpiresAt    time.Time `json:"expires_at"`
	}

	// A Status is the state of a login session as reported by the server.
	Status struct {
		Status   string `json:"status"`
		LoginURL string `json:"login_url"`
	}

	// A Session is an authenticated device session.
	Session struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		ExpireAt     time.Time `json:"expire_at"`
	}

	// A User is the owner of a device session.
	User struct {
		ID    string `json:"uuid"`
		Email string `json:"email"`
	}
)

// Statuses reported by the server.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusExpired   = "expired"
	StatusInvalid   = "invalid"
	StatusError     = "error"
)

// Defined returns true when the session holds tokens.
func (s Session) Defined() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// An APIError reprensents an HTTP error returned by qrbridge server.
type APIError struct {
	StatusCode int
	Err        struct {
		Tag     string `json:"tag"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAPIError(r io.Reader, code int) error {
	var apierr APIError
	dec := json.NewDecoder(r)
	if err := dec.Decode(&apierr); err != nil {
		return err
	}
	apierr.StatusCode = code
	return &apierr
}

func (e *APIError) Error() string {
	return e.Err.Message
}

// Tag returns the error tag of err when it is an APIError.
func Tag(err error) string {
	if apierr, ok := err.(*APIError); ok {
		return apierr.Err.Tag
	}
	return ""
}
