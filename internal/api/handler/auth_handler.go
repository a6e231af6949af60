package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/api/metrics"
	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/ports"
)

type AuthHandler struct {
	login    ports.LoginService
	refresh  ports.RefreshService
	register ports.RegistrationService
	session  *SessionIssuer
	log      zerolog.Logger
}

func NewAuthHandler(
	login ports.LoginService,
	refresh ports.RefreshService,
	register ports.RegistrationService,
	session *SessionIssuer,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		login:    login,
		refresh:  refresh,
		register: register,
		session:  session,
		log:      log.With().Str("component", "auth_handler").Logger(),
	}
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type signupRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=100"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Name     string `json:"name,omitempty" form:"name" validate:"max=50"`
}

func (r signupRequest) input() ports.SignupInput {
	return ports.SignupInput{Username: r.Username, Password: r.Password, Email: r.Email, Name: r.Name}
}

type signupResponse struct {
	User *domain.User `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	Message     string `json:"message"`
}

// Login handles the login form. Any failure sends the browser back to the
// form with ?error=true.
func (h *AuthHandler) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return c.Redirect(http.StatusFound, "/login?error=true")
	}

	user, err := h.login.Authenticate(c.Request().Context(), form.Username, form.Password)
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			result = "invalid_credentials"
		case errors.Is(err, domain.ErrUserDisabled):
			result = "disabled"
		default:
			h.log.Error().Err(err).Msg("login failed")
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		h.log.Info().Str("username", form.Username).Str("result", result).Msg("login rejected")
		return c.Redirect(http.StatusFound, "/login?error=true")
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return h.session.Issue(c, user.Username)
}

// Logout drops the token cookies. There is no server-side session to end.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.session.Clear(c)
	clearCookie(c, flashCookie, true)
	return c.Redirect(http.StatusFound, "/login?logout=true")
}

// Refresh exchanges the refresh token cookie for a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Produce      json
// @Success      200   {object}  refreshResponse
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	access, err := h.refresh.Refresh(c.Request().Context(), cookieValue(c, RefreshTokenCookie))
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(refreshResult(err)).Inc()
		return err
	}

	metrics.RefreshTotal.WithLabelValues("success").Inc()
	h.session.SetAccessToken(c, access)
	return c.JSON(http.StatusOK, refreshResponse{
		AccessToken: access.Value,
		Message:     "access token refreshed",
	})
}

func refreshResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoRefreshToken):
		return "no_token"
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		return "invalid"
	case errors.Is(err, domain.ErrRefreshTokenExpired):
		return "expired"
	default:
		return "error"
	}
}

// Signup registers a new account from a JSON body.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "User registration details"
// @Success      201   {object}  signupResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		metrics.SignupsTotal.WithLabelValues("api", "invalid").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		metrics.SignupsTotal.WithLabelValues("api", "invalid").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := h.register.Signup(c.Request().Context(), req.input())
	if err != nil {
		metrics.SignupsTotal.WithLabelValues("api", signupResult(err)).Inc()
		return err
	}

	metrics.SignupsTotal.WithLabelValues("api", "created").Inc()
	return c.JSON(http.StatusCreated, signupResponse{User: user})
}

func signupResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	default:
		return "error"
	}
}

// Me returns the authenticated caller.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  domain.Identity
// @Failure      401   {object}  map[string]string
// @Router       /api/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, id)
}
