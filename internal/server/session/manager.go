package session

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/mdouchement/qrbridge/internal/database"
	"github.com/mdouchement/qrbridge/internal/model"
	"github.com/mdouchement/qrbridge/internal/qrerror"
	"github.com/pkg/errors"
)

// TokenLength is the length of access and refresh tokens.
const TokenLength = 24

type (
	// A Manager manages device sessions and mints the one-time sign-in
	// credentials redeemed by the QR login initiator.
	Manager interface {
		// Generate creates a new device session without user information.
		Generate() *model.Session
		// Validate returns the device session matching an access token.
		Validate(token string) (*model.Session, error)
		// UserFor returns the owner of the given device session.
		UserFor(session *model.Session) (*model.User, error)
		// IssueLoginToken mints the one-time sign-in credential bound to a
		// confirmed login session.
		IssueLoginToken(session *model.LoginSession) (string, error)
		// ParseLoginToken verifies a one-time credential and returns the QR
		// token and the user id it is bound to.
		ParseLoginToken(credential string) (token, userID string, err error)
		// LoginURL returns the redeemable sign-in link wrapping the credential.
		LoginURL(credential string) string
	}

	manager struct {
		db database.Client
		// JWT params
		signingKey []byte
		// Redeemable link params
		externalURL string
		redeemTTL   time.Duration
		// Session params
		refreshTokenExpirationTime time.Duration
	}
)

// NewManager returns a new manager.
func NewManager(db database.Client, signingKey []byte, externalURL string, redeemTTL, refreshTokenExpirationTime time.Duration) Manager {
	return &manager{
		db:                         db,
		signingKey:                 signingKey,
		externalURL:                externalURL,
		redeemTTL:                  redeemTTL,
		refreshTokenExpirationTime: refreshTokenExpirationTime,
	}
}

func (m *manager) Generate() *model.Session {
	return &model.Session{
		ExpireAt:     time.Now().Add(m.refreshTokenExpirationTime).UTC(),
		AccessToken:  SecureToken(TokenLength),
		RefreshToken: SecureToken(TokenLength),
	}
}

func (m *manager) Validate(token string) (*model.Session, error) {
	session, err := m.db.FindSessionByAccessToken(token)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, qrerror.NewWithTagCode(
				http.StatusUnauthorized,
				qrerror.TagUnauthenticated,
				"Invalid login credentials.",
			)
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}

	if session.ExpireAt.Before(time.Now()) {
		return nil, qrerror.NewWithTagCode(
			http.StatusUnauthorized,
			qrerror.TagUnauthenticated,
			"Invalid login credentials.",
		)
	}

	return session, nil
}

func (m *manager) UserFor(session *model.Session) (*model.User, error) {
	user, err := m.db.FindUser(session.UserID)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, qrerror.NewWithTagCode(
				http.StatusUnauthorized,
				qrerror.TagUnauthenticated,
				"Invalid login credentials.",
			)
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}

	return user, nil
}

func (m *manager) IssueLoginToken(session *model.LoginSession) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti": session.Token,
		"sub": session.UserID,
		"iat": now.Unix(),
		"exp": now.Add(m.redeemTTL).Unix(),
	})

	credential, err := token.SignedString(m.signingKey)
	return credential, errors.Wrap(err, "could not sign login token")
}

func (m *manager) ParseLoginToken(credential string) (string, string, error) {
	token, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", "", qrerror.NewWithTagCode(
			http.StatusUnauthorized,
			qrerror.TagUnauthenticated,
			"Invalid or expired login link.",
		)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		panic("token implementation has wrong type of claims")
	}

	jti, _ := claims["jti"].(string)
	sub, _ := claims["sub"].(string)
	if jti == "" || sub == "" {
		return "", "", qrerror.NewWithTagCode(
			http.StatusUnauthorized,
			qrerror.TagUnauthenticated,
			"Invalid or expired login link.",
		)
	}

	return jti, sub, nil
}

func (m *manager) LoginURL(credential string) string {
	return fmt.Sprintf("%s/auth/redeem?token=%s", m.externalURL, url.QueryEscape(credential))
}
