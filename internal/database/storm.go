package database

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/qrbridge/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.Init(&model.User{}); err != nil {
		return errors.Wrap(err, "could not init user index")
	}

	if err := db.Init(&model.Session{}); err != nil {
		return errors.Wrap(err, "could not init session index")
	}

	err = db.Init(&model.LoginSession{})
	return errors.Wrap(err, "could not init login session index")
}

// StormOpen returns a new Storm database connection.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// FindUser returns the user for the given id (UUID).
func (c *strm) FindUser(id string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ID", id, &user); err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByMail returns the user for the given email.
func (c *strm) FindUserByMail(email string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Email", email, &user); err != nil {
		return nil, errors.Wrap(err, "find user by mail")
	}
	return &user, nil
}

// FindSessionByAccessToken returns the session for the given access token.
func (c *strm) FindSessionByAccessToken(token string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("AccessToken", token, &session); err != nil {
		return nil, errors.Wrap(err, "find session by access token")
	}
	return &session, nil
}

// FindLoginSession returns the login session for the given token.
func (c *strm) FindLoginSession(token string) (*model.LoginSession, error) {
	var session model.LoginSession
	if err := c.db.One("Token", token, &session); err != nil {
		return nil, errors.Wrap(err, "find login session by token")
	}
	return &session, nil
}

// ConfirmLoginSession binds the login session to the given user.
// The read and the conditional write share one transaction, bbolt allows a
// single writer so two concurrent confirmations cannot both pass the status check.
func (c *strm) ConfirmLoginSession(token, userID, loginToken string) (*model.LoginSession, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin confirmation transaction")
	}
	defer tx.Rollback()

	var session model.LoginSession
	if err := tx.One("Token", token, &session); err != nil {
		return nil, errors.Wrap(err, "find login session by token")
	}

	if session.Status == model.LoginSessionConfirmed {
		return nil, ErrLoginSessionConfirmed
	}
	if session.Expired() {
		return nil, ErrLoginSessionExpired
	}

	session.Status = model.LoginSessionConfirmed
	session.UserID = userID
	session.LoginToken = loginToken
	session.SetUpdatedAt(time.Now().UTC())

	if err := tx.Save(&session); err != nil {
		return nil, errors.Wrap(err, "could not save confirmed login session")
	}
	return &session, errors.Wrap(tx.Commit(), "could not commit confirmation")
}

// RedeemLoginSession marks the confirmed login session's credential as used.
func (c *strm) RedeemLoginSession(token string) (*model.LoginSession, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin redemption transaction")
	}
	defer tx.Rollback()

	var session model.LoginSession
	if err := tx.One("Token", token, &session); err != nil {
		return nil, errors.Wrap(err, "find login session by token")
	}

	// A credential only exists for confirmed sessions, anything else means
	// the link is stale or forged.
	if session.Status != model.LoginSessionConfirmed || session.RedeemedAt != nil {
		return nil, ErrLoginSessionRedeemed
	}

	t := time.Now().UTC()
	session.RedeemedAt = &t
	session.SetUpdatedAt(t)

	if err := tx.Save(&session); err != nil {
		return nil, errors.Wrap(err, "could not save redeemed login session")
	}
	return &session, errors.Wrap(tx.Commit(), "could not commit redemption")
}

// RevokeExpiredLoginSessions removes all the stale unconfirmed sessions.
// Correctness does not depend on it, expiry is recomputed on every read.
func (c *strm) RevokeExpiredLoginSessions() error {
	err := c.db.Select(
		q.Eq("Status", model.LoginSessionPending),
		q.Lt("ExpireAt", time.Now()),
	).Delete(&model.LoginSession{})
	if err != nil && !c.IsNotFound(err) {
		return errors.Wrap(err, "could not revoke expired login sessions")
	}
	return nil
}
