package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/qrbridge/internal/database"
	"github.com/mdouchement/qrbridge/internal/model"
	"github.com/mdouchement/qrbridge/internal/qrlogin"
	"github.com/mdouchement/qrbridge/internal/server/middlewares"
	"github.com/mdouchement/qrbridge/internal/server/session"
)

// A Controller is used to init the server package.
type Controller struct {
	Version        string
	Database       database.Client
	NoRegistration bool
	// ExternalURL is the base URL embedded in QR payloads and login links.
	ExternalURL string
	// JWT params
	SigningKey []byte
	// QR login params
	QRValidityWindow time.Duration
	QRRedeemTTL      time.Duration
	// Session params
	SessionExpirationTime time.Duration
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	////////////
	// Router //
	////////////

	sessions := session.NewManager(
		ctrl.Database,
		ctrl.SigningKey,
		ctrl.ExternalURL,
		ctrl.QRRedeemTTL,
		ctrl.SessionExpirationTime,
	)
	logins := qrlogin.NewService(ctrl.Database, sessions, ctrl.QRValidityWindow)

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.Session(sessions))

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// auth handlers
	//
	auth := &auth{
		db:       ctrl.Database,
		sessions: sessions,
		logins:   logins,
	}
	if !ctrl.NoRegistration {
		router.POST("/auth", auth.Register)
	}
	router.POST("/auth/sign_in", auth.Login)
	router.GET("/auth/redeem", auth.Redeem)
	restricted.POST("/auth/sign_out", auth.Logout)

	//
	// qr login handlers
	//
	qr := &qr{
		logins:      logins,
		externalURL: ctrl.ExternalURL,
	}
	router.POST("/qr/sessions", qr.Create)
	router.GET("/qr/sessions/status", qr.Status)
	router.GET("/qr/sessions/:token/image", qr.Image)
	router.POST("/qr/token/encode", qr.EncodeToken)
	router.POST("/qr/token/decode", qr.DecodeToken)
	restricted.POST("/qr/sessions/confirm", qr.Confirm)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) *model.User {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}

func currentSession(c echo.Context) *model.Session {
	session, ok := c.Get(middlewares.CurrentSessionContextKey).(*model.Session)
	if ok {
		return session
	}
	return nil
}
