package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/api/metrics"
	"github.com/koreamarkers/webauth/internal/api/middleware"
	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/ports"
)

const tokenPreviewLen = 50

// Template names understood by the renderer.
const (
	HomePage   = "home.html"
	LoginPage  = "login.html"
	SignupPage = "signup.html"
)

// PageHandler serves the server-rendered pages.
type PageHandler struct {
	register ports.RegistrationService
	log      zerolog.Logger
}

func NewPageHandler(register ports.RegistrationService, log zerolog.Logger) *PageHandler {
	return &PageHandler{
		register: register,
		log:      log.With().Str("component", "page_handler").Logger(),
	}
}

type HomeData struct {
	Username        string
	HasAccessToken  bool
	HasRefreshToken bool
	AccessPreview   string
	RefreshPreview  string
}

type LoginData struct {
	Error   string
	Message string
	Flash   *Flash
}

type SignupData struct {
	Form   signupRequest
	Errors map[string]string
	Flash  *Flash
}

func (h *PageHandler) Home(c echo.Context) error {
	data := HomeData{}
	if id := middleware.CurrentIdentity(c); id != nil {
		data.Username = id.Username
	}
	if v := cookieValue(c, middleware.AccessTokenCookie); v != "" {
		data.HasAccessToken = true
		data.AccessPreview = preview(v)
	}
	if v := cookieValue(c, RefreshTokenCookie); v != "" {
		data.HasRefreshToken = true
		data.RefreshPreview = preview(v)
	}
	return c.Render(http.StatusOK, HomePage, data)
}

func preview(token string) string {
	if len(token) <= tokenPreviewLen {
		return token
	}
	return token[:tokenPreviewLen] + "..."
}

func (h *PageHandler) Login(c echo.Context) error {
	data := LoginData{Flash: popFlash(c)}
	if c.QueryParams().Has("error") {
		data.Error = "invalid username or password"
	}
	if c.QueryParams().Has("logout") {
		data.Message = "you have been logged out"
	}
	return c.Render(http.StatusOK, LoginPage, data)
}

func (h *PageHandler) Signup(c echo.Context) error {
	return c.Render(http.StatusOK, SignupPage, SignupData{Flash: popFlash(c)})
}

// SubmitSignup handles the signup form.
func (h *PageHandler) SubmitSignup(c echo.Context) error {
	var form signupRequest
	if err := c.Bind(&form); err != nil {
		metrics.SignupsTotal.WithLabelValues("form", "invalid").Inc()
		setFlash(c, FlashError, "invalid signup form")
		return c.Redirect(http.StatusFound, "/signup")
	}

	if err := c.Validate(&form); err != nil {
		metrics.SignupsTotal.WithLabelValues("form", "invalid").Inc()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		form.Password = ""
		return c.Render(http.StatusOK, SignupPage, SignupData{Form: form, Errors: ve.ByField()})
	}

	_, err := h.register.Signup(c.Request().Context(), form.input())
	switch {
	case err == nil:
		metrics.SignupsTotal.WithLabelValues("form", "created").Inc()
		setFlash(c, FlashSuccess, "signup complete, please log in")
		return c.Redirect(http.StatusFound, "/login")
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateEmail):
		metrics.SignupsTotal.WithLabelValues("form", signupResult(err)).Inc()
		setFlash(c, FlashError, err.Error())
		return c.Redirect(http.StatusFound, "/signup")
	default:
		metrics.SignupsTotal.WithLabelValues("form", "error").Inc()
		h.log.Error().Err(err).Str("username", form.Username).Msg("signup failed")
		setFlash(c, FlashError, "signup failed, please try again")
		return c.Redirect(http.StatusFound, "/signup")
	}
}
