package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mdouchement/qrbridge/internal/qrerror"
	"github.com/mdouchement/qrbridge/pkg/qrclient"
	"github.com/mdouchement/qrbridge/pkg/qrtoken"
	"github.com/pkg/errors"
)

// Confirm runs the confirmer side of the QR login flow: it decodes the
// scanned payload, checks that this device is signed in, asks for an explicit
// approval and submits the confirmation.
//
// payload can be the full confirmation URL out of the QR code or just its
// encoded token.
func Confirm(payload string) error {
	encoded := encodedToken(payload)

	// Fail fast on garbage, before any network call.
	if _, err := qrtoken.Decode(encoded); err != nil {
		return errors.Wrap(err, "this code could not be read")
	}

	cfg, err := Load()
	if err != nil || !cfg.Session.Defined() {
		return errors.New("this device is not signed in, run `qrc signin` first then retry")
	}

	c, err := qrclient.NewDefaultClient(cfg.Endpoint)
	if err != nil {
		return errors.Wrap(err, "could not reach given endpoint")
	}
	c.SetBearerToken(cfg.Session.AccessToken)

	// Confirmation binds a new device to this account, never approve silently.
	fmt.Printf("Approve a new sign-in for %s?\n", cfg.Email)
	answer, err := readline.Line("Only approve codes you generated yourself. [y/N]: ")
	if err != nil {
		return errors.Wrap(err, "could not read answer from stdin")
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Aborted, nothing was approved.")
		return nil
	}

	if err = c.Confirm(context.Background(), encoded); err != nil {
		switch qrclient.Tag(err) {
		case qrerror.TagExpired:
			return errors.New("this code has expired, ask the other device to generate a new one")
		case qrerror.TagAlreadyConfirmed:
			return errors.New("this code has already been used")
		case qrerror.TagNotFound:
			return errors.New("no login request matches this code")
		case qrerror.TagUnauthenticated:
			return errors.New("your session has expired, run `qrc signin` then retry")
		}
		return errors.Wrap(err, "could not confirm the login")
	}

	fmt.Println("Login approved. The other device is signing in.")
	return nil
}

// encodedToken extracts the encoded token from a confirmation URL, or returns
// the payload as is when it is already a bare token.
func encodedToken(payload string) string {
	u, err := url.Parse(payload)
	if err != nil {
		return payload
	}
	if t := u.Query().Get("t"); t != "" {
		return t
	}
	return payload
}
