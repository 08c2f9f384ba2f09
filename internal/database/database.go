package database

import (
	"github.com/mdouchement/qrbridge/internal/model"
	"github.com/pkg/errors"
)

// Sentinel errors returned by the conditional login session updates.
var (
	// ErrLoginSessionExpired is returned when the validity window has passed.
	ErrLoginSessionExpired = errors.New("login session expired")
	// ErrLoginSessionConfirmed is returned when the session is already bound to a user.
	ErrLoginSessionConfirmed = errors.New("login session already confirmed")
	// ErrLoginSessionRedeemed is returned when the one-time credential was already used.
	ErrLoginSessionRedeemed = errors.New("login session already redeemed")
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool

		UserInteraction
		SessionInteraction
		LoginSessionInteraction
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id (UUID).
		FindUser(id string) (*model.User, error)
		// FindUserByMail returns the user for the given email.
		FindUserByMail(email string) (*model.User, error)
	}

	// An SessionInteraction defines all the methods used to interact with a device session record.
	SessionInteraction interface {
		// FindSessionByAccessToken returns the session for the given access token.
		FindSessionByAccessToken(token string) (*model.Session, error)
	}

	// A LoginSessionInteraction defines all the methods used to interact with a QR login session record.
	LoginSessionInteraction interface {
		// FindLoginSession returns the login session for the given token.
		FindLoginSession(token string) (*model.LoginSession, error)
		// ConfirmLoginSession binds the login session to the given user and stores
		// its one-time credential. The whole transition runs in a single
		// transaction so that concurrent confirmations end with exactly one
		// winner; the others get ErrLoginSessionConfirmed or ErrLoginSessionExpired.
		ConfirmLoginSession(token, userID, loginToken string) (*model.LoginSession, error)
		// RedeemLoginSession marks the confirmed login session's credential as
		// used. A second redemption gets ErrLoginSessionRedeemed.
		RedeemLoginSession(token string) (*model.LoginSession, error)
		// RevokeExpiredLoginSessions removes from database all the unconfirmed
		// sessions whose validity window has passed.
		RevokeExpiredLoginSessions() error
	}
)
