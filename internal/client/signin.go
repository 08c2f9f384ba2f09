package client

import (
	"context"
	"fmt"

	"github.com/chzyer/readline"
	"github.com/mdouchement/qrbridge/pkg/qrclient"
	"github.com/pkg/errors"
)

// SignIn authenticates this device with email and password so it can act as a
// confirmer for QR logins.
func SignIn(endpoint string) error {
	c, err := qrclient.NewDefaultClient(endpoint)
	if err != nil {
		return errors.Wrap(err, "could not reach given endpoint")
	}

	email, err := readline.Line("Email: ")
	if err != nil {
		return errors.Wrap(err, "could not read email from stdin")
	}

	password, err := readline.Password("Password: ")
	if err != nil {
		return errors.Wrap(err, "could not read password from stdin")
	}

	session, user, err := c.SignIn(context.Background(), email, string(password))
	if err != nil {
		return errors.Wrap(err, "could not sign in")
	}

	fmt.Printf("Signed in as %s.\n", user.Email)

	return Save(Config{
		Endpoint: endpoint,
		Email:    user.Email,
		Session:  *session,
	})
}

// SignOut terminates the stored device session.
func SignOut() error {
	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "no stored session")
	}

	// Best effort server side, the local credentials go away regardless.
	if cfg.Session.Defined() {
		if c, err := qrclient.NewDefaultClient(cfg.Endpoint); err == nil {
			c.SetBearerToken(cfg.Session.AccessToken)
			_ = c.SignOut(context.Background())
		}
	}

	return Remove()
}
