package server_test

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/labstack/echo/v4"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/mdouchement/qrbridge/internal/database"
	"github.com/mdouchement/qrbridge/internal/model"
	"github.com/mdouchement/qrbridge/internal/server"
	sessionpkg "github.com/mdouchement/qrbridge/internal/server/session"
	"github.com/stretchr/testify/assert"
)

func TestRequestHome(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestRequestVersion(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/version").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func setup() (engine *echo.Echo, ctrl server.Controller, r *gofight.RequestConfig, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "qrbridge.*.db")
	if err != nil {
		panic(err)
	}
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	if err != nil {
		panic(err)
	}

	ctrl = server.Controller{
		Version:               "test",
		Database:              db,
		NoRegistration:        false,
		ExternalURL:           "http://qrbridge.lan",
		SigningKey:            []byte("secret"),
		QRValidityWindow:      3 * time.Minute,
		QRRedeemTTL:           5 * time.Minute,
		SessionExpirationTime: 365 * 24 * time.Hour,
	}
	engine = server.EchoEngine(ctrl)

	return engine, ctrl, gofight.New(), func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func createUser(ctrl server.Controller) *model.User {
	var err error

	user := &model.User{}
	user.Email = "george.abitbol@nowhere.lan"
	user.Password, err = argon2.GenerateFromPasswordString("password42", argon2.Default)
	if err != nil {
		panic(err)
	}
	err = ctrl.Database.Save(user)
	if err != nil {
		panic(err)
	}

	return user
}

func createUserWithSession(ctrl server.Controller) (*model.User, *model.Session) {
	user := createUser(ctrl)

	session := &model.Session{
		UserAgent:    "Go-http-client/1.1",
		UserID:       user.ID,
		ExpireAt:     time.Now().Add(ctrl.SessionExpirationTime).UTC(),
		AccessToken:  sessionpkg.SecureToken(8),
		RefreshToken: sessionpkg.SecureToken(8),
	}
	if err := ctrl.Database.Save(session); err != nil {
		panic(err)
	}

	return user, session
}

func createLoginSession(ctrl server.Controller, window time.Duration) *model.LoginSession {
	login := &model.LoginSession{
		Token:    sessionpkg.SecureToken(sessionpkg.TokenLength),
		Status:   model.LoginSessionPending,
		ExpireAt: time.Now().Add(window).UTC(),
	}
	if err := ctrl.Database.Save(login); err != nil {
		panic(err)
	}
	return login
}
