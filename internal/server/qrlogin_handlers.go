package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/qrbridge/internal/qrerror"
	"github.com/mdouchement/qrbridge/internal/qrlogin"
	"github.com/mdouchement/qrbridge/pkg/qrtoken"
	qrcode "github.com/skip2/go-qrcode"
)

// qr contains all QR login handlers.
type qr struct {
	logins      qrlogin.Service
	externalURL string
}

type (
	confirmParams struct {
		EncodedToken string `json:"encoded_token"`
	}

	encodeTokenParams struct {
		Token string `json:"token"`
	}

	decodeTokenParams struct {
		Encoded string `json:"encoded"`
	}
)

///// Create
////
//

// Create allocates a new pending login session for the initiator device.
func (h *qr) Create(c echo.Context) error {
	login, err := h.logins.Create()
	if err != nil {
		return err
	}

	encoded := qrtoken.Encode(login.Token)
	return c.JSON(http.StatusOK, echo.Map{
		"token":         login.Token,
		"encoded_token": encoded,
		"confirm_url":   h.confirmURL(encoded),
		"expires_at":    login.ExpireAt,
	})
}

///// Status
////
//

// Status is polled by the initiator until the session reaches a terminal state.
func (h *qr) Status(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, qrlogin.Status{Status: qrlogin.StatusInvalid})
	}

	status, err := h.logins.Status(token)
	if err != nil {
		// The poller keys off the status field, not the HTTP code.
		return c.JSON(http.StatusInternalServerError, qrlogin.Status{Status: qrlogin.StatusError})
	}

	return c.JSON(http.StatusOK, status)
}

///// Confirm
////
//

// Confirm binds the scanned session to the authenticated user.
// The confirming identity comes from the bearer session, never from the body.
func (h *qr) Confirm(c echo.Context) error {
	var params confirmParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   echo.Map{"message": "Could not get confirmation parameters."},
		})
	}

	token, err := qrtoken.Decode(params.EncodedToken)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error": echo.Map{
				"tag":     qrerror.TagDecode,
				"message": "This code could not be read. Scan it again.",
			},
		})
	}

	if err = h.logins.Confirm(token, currentUser(c).ID); err != nil {
		if qrerr, ok := err.(*qrerror.QRError); ok {
			return c.JSON(qrerror.StatusCode(qrerr), echo.Map{
				"success": false,
				"error": echo.Map{
					"tag":     qrerror.Tag(qrerr),
					"message": qrerr.Message(),
				},
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

///// Token codec
////
//

// EncodeToken obfuscates a raw token for embedding into a QR payload.
func (h *qr) EncodeToken(c echo.Context) error {
	var params encodeTokenParams
	if err := c.Bind(&params); err != nil || params.Token == "" {
		return c.JSON(http.StatusBadRequest, qrerror.New("No token provided."))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"encoded": qrtoken.Encode(params.Token),
	})
}

// DecodeToken inverts EncodeToken. Malformed payloads yield a null token.
func (h *qr) DecodeToken(c echo.Context) error {
	var params decodeTokenParams
	if err := c.Bind(&params); err != nil || params.Encoded == "" {
		return c.JSON(http.StatusBadRequest, qrerror.New("No encoded token provided."))
	}

	token, err := qrtoken.Decode(params.Encoded)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"token": nil})
	}

	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

///// Image
////
//

// Image renders the QR code of the session's confirmation URL as a PNG.
func (h *qr) Image(c echo.Context) error {
	token := c.Param("token")

	status, err := h.logins.Status(token)
	if err != nil {
		return err
	}
	if status.Status != qrlogin.StatusPending {
		return c.JSON(http.StatusNotFound, qrerror.New("No pending login request matches this token."))
	}

	png, err := qrcode.Encode(h.confirmURL(qrtoken.Encode(token)), qrcode.Medium, 256)
	if err != nil {
		return err
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *qr) confirmURL(encoded string) string {
	return fmt.Sprintf("%s/qr/confirm?t=%s", h.externalURL, url.QueryEscape(encoded))
}
