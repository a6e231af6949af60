package api

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/koreamarkers/webauth/docs"
	"github.com/koreamarkers/webauth/internal/api/handler"
	"github.com/koreamarkers/webauth/internal/api/middleware"
	"github.com/koreamarkers/webauth/internal/api/view"
	"github.com/koreamarkers/webauth/internal/core/ports"
	infrahttp "github.com/koreamarkers/webauth/internal/infrastructure/http"
	"github.com/koreamarkers/webauth/internal/infrastructure/http/handlers"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Log           zerolog.Logger
	Tokens        ports.TokenPolicy
	Users         ports.UserRepository
	Login         ports.LoginService
	Refresh       ports.RefreshService
	Registration  ports.RegistrationService
	Renderer      echo.Renderer
	SecureCookies bool
	// Pingers are checked by /health/ready.
	Pingers []handlers.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := infrahttp.NewServer(deps.Log, deps.Pingers...)
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.Validator = handler.NewValidator()
	e.Renderer = deps.Renderer

	// --- Authentication gate, then access rules ---
	e.Use(middleware.Authenticate(deps.Tokens, deps.Users, deps.Log))
	e.Use(middleware.Authorize(middleware.DefaultRules()))

	// --- Dependencies ---
	session := handler.NewSessionIssuer(deps.Tokens, deps.SecureCookies, deps.Log)
	authHandler := handler.NewAuthHandler(deps.Login, deps.Refresh, deps.Registration, session, deps.Log)
	pageHandler := handler.NewPageHandler(deps.Registration, deps.Log)

	// --- Pages ---
	e.GET("/", pageHandler.Home)
	e.GET("/login", pageHandler.Login)
	e.POST("/login", authHandler.Login)
	e.GET("/signup", pageHandler.Signup)
	e.POST("/signup", pageHandler.SubmitSignup)
	e.POST("/logout", authHandler.Logout)

	// --- JSON API ---
	e.POST("/api/auth/refresh", authHandler.Refresh)
	e.POST("/api/auth/signup", authHandler.Signup)
	e.GET("/api/me", authHandler.Me)

	// --- Static assets and docs ---
	static := view.Static()
	for _, dir := range []string{"css", "js", "images"} {
		e.StaticFS("/"+dir, echo.MustSubFS(static, dir))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
