package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/service"
)

type stubUsers struct {
	users map[string]*domain.User
}

func (s *stubUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUsers) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (s *stubUsers) ExistsByEmail(context.Context, string) (bool, error)    { return false, nil }
func (s *stubUsers) Insert(context.Context, *domain.User) error             { return nil }

type gateFixture struct {
	now    time.Time
	policy *service.TokenPolicy
	users  *stubUsers
	gate   echo.MiddlewareFunc
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{now: time.Unix(1_700_000_000, 0)}
	codec, err := service.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), func() time.Time { return f.now })
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	f.policy = service.NewTokenPolicy(codec, 15*time.Minute, time.Hour)
	f.users = &stubUsers{users: map[string]*domain.User{
		"ban":   {Username: "ban", Role: domain.RoleUser, Enabled: true},
		"root":  {Username: "root", Role: domain.RoleAdmin, Enabled: true},
		"sleep": {Username: "sleep", Role: domain.RoleUser, Enabled: false},
	}}
	f.gate = Authenticate(f.policy, f.users, zerolog.Nop())
	return f
}

// run passes req through the gate and returns the identity seen downstream.
func (f *gateFixture) run(t *testing.T, req *http.Request) *domain.Identity {
	t.Helper()
	c := echo.New().NewContext(req, httptest.NewRecorder())

	called := false
	var seen *domain.Identity
	err := f.gate(func(c echo.Context) error {
		called = true
		seen = IdentityFrom(c.Request().Context())
		if CurrentIdentity(c) != seen {
			t.Fatalf("echo and request context disagree")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("gate returned error: %v", err)
	}
	if !called {
		t.Fatalf("gate must always call next")
	}
	return seen
}

func (f *gateFixture) access(t *testing.T, username string) string {
	t.Helper()
	tok, err := f.policy.IssueAccessToken(username)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	return tok.Value
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	f := newGateFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.access(t, "ban"))

	id := f.run(t, req)
	if id == nil || id.Username != "ban" {
		t.Fatalf("expected identity ban, got %+v", id)
	}
	if len(id.Authorities) != 1 || id.Authorities[0] != "ROLE_USER" {
		t.Fatalf("unexpected authorities %v", id.Authorities)
	}
}

func TestAuthenticate_CookieFallback(t *testing.T) {
	f := newGateFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: f.access(t, "root")})

	id := f.run(t, req)
	if id == nil || !id.HasRole(domain.RoleAdmin) {
		t.Fatalf("expected admin identity from cookie, got %+v", id)
	}
}

func TestAuthenticate_HeaderWinsOverCookie(t *testing.T) {
	f := newGateFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.access(t, "ban"))
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: f.access(t, "root")})

	if id := f.run(t, req); id == nil || id.Username != "ban" {
		t.Fatalf("expected header token to win, got %+v", id)
	}
}

func TestAuthenticate_NonBearerHeaderFallsBackToCookie(t *testing.T) {
	f := newGateFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic YmFuOnB3")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: f.access(t, "ban")})

	if id := f.run(t, req); id == nil || id.Username != "ban" {
		t.Fatalf("expected cookie identity behind a Basic header, got %+v", id)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: f.access(t, "root")})

	if id := f.run(t, req); id == nil || id.Username != "root" {
		t.Fatalf("expected cookie identity behind an empty bearer header, got %+v", id)
	}
}

func TestAuthenticate_Anonymous(t *testing.T) {
	f := newGateFixture(t)
	refresh, _ := f.policy.IssueRefreshToken("ban")
	expired := f.access(t, "ban")

	cases := map[string]func(*http.Request){
		"no token":       func(*http.Request) {},
		"garbage header": func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
		"non bearer":     func(r *http.Request) { r.Header.Set("Authorization", "Basic YmFuOnB3") },
		"garbage cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "x.y.z"}) },
		"refresh token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+refresh.Value) },
		"unknown user":   func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+f.access(t, "ghost")) },
		"disabled user":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+f.access(t, "sleep")) },
	}

	for name, setup := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		setup(req)
		if id := f.run(t, req); id != nil {
			t.Fatalf("%s: expected anonymous, got %+v", name, id)
		}
	}

	f.now = f.now.Add(16 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	if id := f.run(t, req); id != nil {
		t.Fatalf("expired token must be anonymous, got %+v", id)
	}
}
