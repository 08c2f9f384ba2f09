package client

import (
	"context"
	"fmt"
	"time"

	"github.com/mdouchement/qrbridge/pkg/qrclient"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// PollInterval is the delay between two status requests.
const PollInterval = 2 * time.Second

// Login runs the initiator side of the QR login flow: it renders the QR code
// in the terminal, waits for a confirmation from another device and stores the
// redeemed session.
func Login(endpoint string) error {
	c, err := qrclient.NewDefaultClient(endpoint)
	if err != nil {
		return errors.Wrap(err, "could not reach given endpoint")
	}

	flow := NewFlow(c, PollInterval)
	defer flow.Reset()

	request, err := flow.Start(context.Background())
	if err != nil {
		return err
	}

	qr, err := qrcode.New(request.ConfirmURL, qrcode.Low)
	if err != nil {
		return errors.Wrap(err, "could not render QR code")
	}
	fmt.Println(qr.ToSmallString(false))
	fmt.Println("Scan this code with a signed-in device to approve the login.")
	fmt.Printf("The code expires at %s.\n", request.ExpiresAt.Local().Format(time.Kitchen))

	session, err := flow.Wait()
	if errors.Cause(err) == ErrExpired {
		fmt.Println("The code expired before being scanned. Run `qrc login` again for a fresh one.")
		return nil
	}
	if err != nil {
		return err
	}

	_, user := flow.Session()
	fmt.Printf("Signed in as %s.\n", user.Email)

	return Save(Config{
		Endpoint: endpoint,
		Email:    user.Email,
		Session:  *session,
	})
}
