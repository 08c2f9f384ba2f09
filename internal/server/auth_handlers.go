package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/mdouchement/qrbridge/internal/database"
	"github.com/mdouchement/qrbridge/internal/model"
	"github.com/mdouchement/qrbridge/internal/qrerror"
	"github.com/mdouchement/qrbridge/internal/qrlogin"
	sessionpkg "github.com/mdouchement/qrbridge/internal/server/session"
	"github.com/pkg/errors"
)

// auth contains all authentication handlers.
type auth struct {
	db       database.Client
	sessions sessionpkg.Manager
	logins   qrlogin.Service
}

type credentialsParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

///// Register
////
//

// Register handler is used to register the user.
func (h *auth) Register(c echo.Context) error {
	var params credentialsParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, qrerror.New("Could not get user's params."))
	}

	if params.Email == "" {
		return c.JSON(http.StatusBadRequest, qrerror.New("No email provided."))
	}
	if params.Password == "" {
		return c.JSON(http.StatusBadRequest, qrerror.New("No password provided."))
	}

	if _, err := h.db.FindUserByMail(params.Email); err == nil {
		return c.JSON(http.StatusConflict, qrerror.New("This email is already registered."))
	} else if !h.db.IsNotFound(err) {
		return errors.Wrap(err, "could not check email availability")
	}

	hash, err := argon2.GenerateFromPasswordString(params.Password, argon2.Default)
	if err != nil {
		return errors.Wrap(err, "could not hash password")
	}

	user := &model.User{
		Email:    params.Email,
		Password: hash,
	}
	if err := h.db.Save(user); err != nil {
		return errors.Wrap(err, "could not save user")
	}

	return h.renderSession(c, user)
}

///// Login
////
//

// Login authenticates a user with its password and opens a device session.
func (h *auth) Login(c echo.Context) error {
	var params credentialsParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, qrerror.New("Could not get credentials."))
	}

	if params.Email == "" || params.Password == "" {
		return c.JSON(http.StatusBadRequest, qrerror.New("No email or password provided."))
	}

	user, err := h.db.FindUserByMail(params.Email)
	if err != nil {
		if h.db.IsNotFound(err) {
			return c.JSON(http.StatusUnauthorized, qrerror.NewWithTagCode(
				http.StatusUnauthorized,
				qrerror.TagUnauthenticated,
				"Invalid email or password.",
			))
		}
		return errors.Wrap(err, "could not fetch user")
	}

	if err = argon2.CompareHashAndPasswordString(user.Password, params.Password); err != nil {
		return c.JSON(http.StatusUnauthorized, qrerror.NewWithTagCode(
			http.StatusUnauthorized,
			qrerror.TagUnauthenticated,
			"Invalid email or password.",
		))
	}

	return h.renderSession(c, user)
}

///// Redeem
////
//

// Redeem exchanges the one-time login link of a confirmed QR session for a
// device session. This is the initiator's silent sign-in.
func (h *auth) Redeem(c echo.Context) error {
	credential := c.QueryParam("token")
	if credential == "" {
		return c.JSON(http.StatusBadRequest, qrerror.New("No login token provided."))
	}

	device, user, err := h.logins.Redeem(credential, c.Request().UserAgent())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": echo.Map{
			"uuid":  user.ID,
			"email": user.Email,
		},
		"session": echo.Map{
			"access_token":  device.AccessToken,
			"refresh_token": device.RefreshToken,
			"expire_at":     device.ExpireAt,
		},
	})
}

///// Logout
////
//

// Logout used for terminates the current session.
func (h *auth) Logout(c echo.Context) error {
	session := currentSession(c)
	if session != nil {
		err := h.db.Delete(session)
		if err != nil && !h.db.IsNotFound(err) {
			return err
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *auth) renderSession(c echo.Context, user *model.User) error {
	session := h.sessions.Generate()
	session.UserID = user.ID
	session.UserAgent = c.Request().UserAgent()
	if err := h.db.Save(session); err != nil {
		return errors.Wrap(err, "could not save session")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": echo.Map{
			"uuid":  user.ID,
			"email": user.Email,
		},
		"session": echo.Map{
			"access_token":  session.AccessToken,
			"refresh_token": session.RefreshToken,
			"expire_at":     session.ExpireAt,
		},
	})
}
