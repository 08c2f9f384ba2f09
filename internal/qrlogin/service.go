package qrlogin

import (
	"net/http"
	"time"

	"github.com/mdouchement/qrbridge/internal/database"
	"github.com/mdouchement/qrbridge/internal/model"
	"github.com/mdouchement/qrbridge/internal/qrerror"
	"github.com/mdouchement/qrbridge/internal/server/session"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// A Service holds the login session state machine.
	Service interface {
		// Create allocates a new pending login session.
		Create() (*model.LoginSession, error)
		// Confirm binds the login session to the given user and mints its
		// one-time credential. A session can be confirmed exactly once, and
		// never after its validity window.
		Confirm(token, userID string) error
		// Status returns the current state of the login session.
		Status(token string) (Status, error)
		// Redeem exchanges a one-time credential for a new device session.
		Redeem(credential, userAgent string) (*model.Session, *model.User, error)
	}

	service struct {
		db       database.Client
		sessions session.Manager
		window   time.Duration
	}
)

// NewService returns a new Service.
func NewService(db database.Client, sessions session.Manager, window time.Duration) Service {
	return &service{
		db:       db,
		sessions: sessions,
		window:   window,
	}
}

func (s *service) Create() (*model.LoginSession, error) {
	// Opportunistic sweep, stale rows are already invisible to readers.
	if err := s.db.RevokeExpiredLoginSessions(); err != nil {
		logrus.WithError(err).Warn("could not revoke expired login sessions")
	}

	login := &model.LoginSession{
		Token:    session.SecureToken(session.TokenLength),
		Status:   model.LoginSessionPending,
		ExpireAt: time.Now().Add(s.window).UTC(),
	}

	if err := s.db.Save(login); err != nil {
		return nil, errors.Wrap(err, "could not create login session")
	}
	return login, nil
}

func (s *service) Confirm(token, userID string) error {
	login, err := s.db.FindLoginSession(token)
	if err != nil {
		if s.db.IsNotFound(err) {
			return qrerror.NewWithTagCode(
				http.StatusNotFound,
				qrerror.TagNotFound,
				"No login request matches this code.",
			)
		}
		return errors.Wrap(err, "could not fetch login session")
	}

	// The credential is minted before the transition so a pending session is
	// never left confirmed without one. An unused credential is harmless, it
	// only redeems against a confirmed row.
	login.UserID = userID
	credential, err := s.sessions.IssueLoginToken(login)
	if err != nil {
		return qrerror.NewWithTagCode(
			http.StatusInternalServerError,
			qrerror.TagIssuance,
			"Could not issue the sign-in credential. Retry or contact support.",
		)
	}

	_, err = s.db.ConfirmLoginSession(token, userID, credential)
	switch errors.Cause(err) {
	case nil:
		return nil
	case database.ErrLoginSessionConfirmed:
		return qrerror.NewWithTagCode(
			http.StatusConflict,
			qrerror.TagAlreadyConfirmed,
			"This code has already been used on another device.",
		)
	case database.ErrLoginSessionExpired:
		return qrerror.NewWithTagCode(
			http.StatusGone,
			qrerror.TagExpired,
			"This code has expired. Generate a new one.",
		)
	default:
		if s.db.IsNotFound(err) {
			return qrerror.NewWithTagCode(
				http.StatusNotFound,
				qrerror.TagNotFound,
				"No login request matches this code.",
			)
		}
		return errors.Wrap(err, "could not confirm login session")
	}
}

func (s *service) Status(token string) (Status, error) {
	login, err := s.db.FindLoginSession(token)
	if err != nil {
		if s.db.IsNotFound(err) {
			return Status{Status: StatusInvalid}, nil
		}
		return Status{}, errors.Wrap(err, "could not fetch login session")
	}

	// A confirmation that won the race against the clock stays confirmed,
	// expiry only overrides a still-pending row.
	if login.Status == model.LoginSessionConfirmed {
		return Status{
			Status:   StatusConfirmed,
			LoginURL: s.sessions.LoginURL(login.LoginToken),
		}, nil
	}

	if login.Expired() {
		return Status{Status: StatusExpired}, nil
	}

	return Status{Status: StatusPending}, nil
}

func (s *service) Redeem(credential, userAgent string) (*model.Session, *model.User, error) {
	token, userID, err := s.sessions.ParseLoginToken(credential)
	if err != nil {
		return nil, nil, err
	}

	login, err := s.db.RedeemLoginSession(token)
	if err != nil {
		if errors.Cause(err) == database.ErrLoginSessionRedeemed || s.db.IsNotFound(err) {
			return nil, nil, qrerror.NewWithTagCode(
				http.StatusUnauthorized,
				qrerror.TagUnauthenticated,
				"This login link has already been used or is invalid.",
			)
		}
		return nil, nil, errors.Wrap(err, "could not redeem login session")
	}

	if login.UserID != userID {
		return nil, nil, qrerror.NewWithTagCode(
			http.StatusUnauthorized,
			qrerror.TagUnauthenticated,
			"This login link has already been used or is invalid.",
		)
	}

	user, err := s.db.FindUser(userID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, nil, qrerror.NewWithTagCode(
				http.StatusUnauthorized,
				qrerror.TagUnauthenticated,
				"This login link has already been used or is invalid.",
			)
		}
		return nil, nil, errors.Wrap(err, "could not fetch user")
	}

	device := s.sessions.Generate()
	device.UserID = user.ID
	device.UserAgent = userAgent
	if err := s.db.Save(device); err != nil {
		return nil, nil, errors.Wrap(err, "could not save device session")
	}

	return device, user, nil
}
