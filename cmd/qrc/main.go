package main

import (
	"fmt"
	"os"

	"github.com/mdouchement/qrbridge/internal/client"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"
)

func main() {
	c := &cobra.Command{
		Use:     "qrc",
		Short:   "QR login client for qrbridge",
		Version: fmt.Sprintf("%s - build %.7s @ %s", version, revision, date),
		Args:    cobra.NoArgs,
	}
	c.AddCommand(loginCmd)
	c.AddCommand(signinCmd)
	c.AddCommand(confirmCmd)
	c.AddCommand(signoutCmd)

	if err := c.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	loginCmd = &cobra.Command{
		Use:   "login ENDPOINT",
		Short: "Sign in by displaying a QR code to scan from a signed-in device",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return client.Login(args[0])
		},
	}

	signinCmd = &cobra.Command{
		Use:   "signin ENDPOINT",
		Short: "Sign in with email and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return client.SignIn(args[0])
		},
	}

	confirmCmd = &cobra.Command{
		Use:   "confirm PAYLOAD",
		Short: "Approve a scanned QR login code with this device's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return client.Confirm(args[0])
		},
	}

	signoutCmd = &cobra.Command{
		Use:   "signout",
		Short: "Terminate the stored session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return client.SignOut()
		},
	}
)
