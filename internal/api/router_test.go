package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/api/view"
	"github.com/koreamarkers/webauth/internal/core/service"
	"github.com/koreamarkers/webauth/internal/infrastructure/db/sqlstore"
	"github.com/koreamarkers/webauth/internal/infrastructure/http/handlers"
)

type testApp struct {
	e      *echo.Echo
	now    time.Time
	tokens *service.TokenPolicy
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	db, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlstore.Migrate(ctx, db, sqlstore.DriverSQLite, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	users, err := sqlstore.NewUserRepository(db, sqlstore.DriverSQLite)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}

	app := &testApp{now: time.Now()}
	codec, err := service.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), func() time.Time { return app.now })
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	tokens := service.NewTokenPolicy(codec, 15*time.Minute, 7*24*time.Hour)
	app.tokens = tokens

	renderer, err := view.New("", log)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	app.e = NewRouter(Dependencies{
		Log:          log,
		Tokens:       tokens,
		Users:        users,
		Login:        service.NewLoginService(users),
		Refresh:      service.NewRefreshService(tokens, users, log),
		Registration: service.NewRegistrationService(users, log),
		Renderer:     renderer,
		Pingers:      []handlers.Pinger{sqlstore.Pinger{DB: db, Driver: sqlstore.DriverSQLite}},
	})
	return app
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func cookiesOf(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range (&http.Response{Header: rec.Header()}).Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestRouter_SignupLoginRefresh(t *testing.T) {
	app := newTestApp(t)

	signup := url.Values{"username": {"ban"}, "password": {"12345678"}, "email": {"bbgiloo@gmail.com"}, "name": {"반길현"}}
	rec := app.do(postForm("/signup", signup))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("signup: expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = app.do(postForm("/login", url.Values{"username": {"ban"}, "password": {"wrong-password"}}))
	if rec.Header().Get("Location") != "/login?error=true" {
		t.Fatalf("bad login: unexpected redirect %q", rec.Header().Get("Location"))
	}

	rec = app.do(postForm("/login", url.Values{"username": {"ban"}, "password": {"12345678"}}))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("login: expected redirect to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cookies := cookiesOf(rec)
	access, refresh := cookies["accessToken"], cookies["refreshToken"]
	if access == nil || refresh == nil {
		t.Fatalf("login: expected token cookies, got %v", cookies)
	}
	if access.HttpOnly || !refresh.HttpOnly || access.MaxAge != 900 || refresh.MaxAge != 604800 {
		t.Fatalf("login: unexpected cookie attributes %+v %+v", access, refresh)
	}
	if rec.Header().Get("Authorization") != "Bearer "+access.Value {
		t.Fatalf("login: expected Authorization header")
	}

	home := httptest.NewRequest(http.MethodGet, "/", nil)
	home.AddCookie(&http.Cookie{Name: "accessToken", Value: access.Value})
	rec = app.do(home)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<strong>ban</strong>") {
		t.Fatalf("home: expected signed-in page, got %d", rec.Code)
	}

	me := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	me.Header.Set("Authorization", "Bearer "+access.Value)
	rec = app.do(me)
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"username\":\"ban\",\"authorities\":[\"ROLE_USER\"]}\n" {
		t.Fatalf("me: got %d %s", rec.Code, rec.Body.String())
	}

	// A refresh token is not an access token.
	me = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	me.Header.Set("Authorization", "Bearer "+refresh.Value)
	if rec = app.do(me); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me with refresh token: expected 401, got %d", rec.Code)
	}

	app.now = app.now.Add(20 * time.Minute)
	me = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	me.Header.Set("Authorization", "Bearer "+access.Value)
	if rec = app.do(me); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me with expired access token: expected 401, got %d", rec.Code)
	}

	refreshReq := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	refreshReq.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh.Value})
	rec = app.do(refreshReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		AccessToken string `json:"accessToken"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message != "access token refreshed" {
		t.Fatalf("refresh: unexpected body %s", rec.Body.String())
	}

	me = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	me.Header.Set("Authorization", "Bearer "+body.AccessToken)
	if rec = app.do(me); rec.Code != http.StatusOK {
		t.Fatalf("me with refreshed token: expected 200, got %d", rec.Code)
	}
}

func TestRouter_AccessRules(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != "{\"error\":\"unauthorized\"}\n" {
		t.Fatalf("anonymous api: got %d %s", rec.Code, rec.Body.String())
	}

	rec = app.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous page: got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	for _, path := range []string{"/login", "/signup", "/health", "/health/ready", "/css/site.css", "/js/app.js"} {
		if rec := app.do(httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouter_RefreshFailures(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil))
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != "{\"error\":\"no refresh token\"}\n" {
		t.Fatalf("no cookie: got %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "garbage"})
	rec = app.do(req)
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != "{\"error\":\"invalid refresh token\"}\n" {
		t.Fatalf("garbage cookie: got %d %s", rec.Code, rec.Body.String())
	}

	refresh, err := app.tokens.IssueRefreshToken("ban")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	app.now = app.now.Add(8 * 24 * time.Hour)
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh.Value})
	rec = app.do(req)
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != "{\"error\":\"invalid refresh token\"}\n" {
		t.Fatalf("expired cookie: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_APISignup(t *testing.T) {
	app := newTestApp(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return app.do(req)
	}

	if rec := post(`{"username":"ban","password":"12345678","email":"bbgiloo@gmail.com","name":"반길현"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	rec := post(`{"username":"ban","password":"12345678","email":"other@example.com"}`)
	if rec.Code != http.StatusConflict || rec.Body.String() != "{\"error\":\"username is already in use\"}\n" {
		t.Fatalf("duplicate username: got %d %s", rec.Code, rec.Body.String())
	}

	rec = post(`{"username":"kim","password":"12345678","email":"bbgiloo@gmail.com"}`)
	if rec.Code != http.StatusConflict || rec.Body.String() != "{\"error\":\"email is already in use\"}\n" {
		t.Fatalf("duplicate email: got %d %s", rec.Code, rec.Body.String())
	}

	if rec := post(`{"username":"x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid body: expected 400, got %d", rec.Code)
	}
}
