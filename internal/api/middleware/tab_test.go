package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/service"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/memory"
)

type openCall struct {
	profile, tab string
}

type stubOpener struct {
	calls []openCall
	sess  *service.Session
}

func (s *stubOpener) Open(profileID, tabID string) (*service.Session, error) {
	s.calls = append(s.calls, openCall{profileID, tabID})
	return s.sess, nil
}

func newOpener(t *testing.T) *stubOpener {
	t.Helper()
	provider := memory.NewProvider(zerolog.Nop())
	sess := service.NewSession("p", "main", service.SessionDeps{
		Store: service.NewTokenStore(provider.Store("p"), provider.Bus("p"), "main", zerolog.Nop()),
		Log:   zerolog.Nop(),
	})
	return &stubOpener{sess: sess}
}

func runTab(t *testing.T, opener *stubOpener, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Tab(opener, true)(func(c echo.Context) error {
		if _, err := SessionFrom(c); err != nil {
			t.Fatalf("session missing from echo context: %v", err)
		}
		if SessionFromContext(c.Request().Context()) == nil {
			t.Fatalf("session missing from request context")
		}
		return c.NoContent(http.StatusNoContent)
	})
	return rec, h(c)
}

func TestTab_IssuesProfileCookieOnFirstContact(t *testing.T) {
	opener := newOpener(t)

	rec, err := runTab(t, opener, httptest.NewRequest(http.MethodGet, "/session", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != ProfileCookie {
		t.Fatalf("expected one %s cookie, got %v", ProfileCookie, cookies)
	}
	ck := cookies[0]
	if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %+v", ck)
	}
	if _, err := uuid.Parse(ck.Value); err != nil {
		t.Fatalf("profile is not a uuid: %q", ck.Value)
	}
	if len(opener.calls) != 1 || opener.calls[0] != (openCall{ck.Value, DefaultTab}) {
		t.Fatalf("unexpected open calls: %v", opener.calls)
	}
}

func TestTab_ReusesProfileAndReadsTab(t *testing.T) {
	profile := uuid.NewString()

	cases := []struct {
		name string
		req  func() *http.Request
		tab  string
	}{
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/session", nil)
			r.Header.Set(TabHeader, "tab-1")
			return r
		}, "tab-1"},
		{"query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/session/events?tab=tab_2", nil)
		}, "tab_2"},
		{"header wins", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/session?tab=q", nil)
			r.Header.Set(TabHeader, "h")
			return r
		}, "h"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opener := newOpener(t)
			req := tc.req()
			req.AddCookie(&http.Cookie{Name: ProfileCookie, Value: profile})

			rec, err := runTab(t, opener, req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Fatalf("existing profile must not be reissued")
			}
			if opener.calls[0] != (openCall{profile, tc.tab}) {
				t.Fatalf("unexpected open call: %v", opener.calls[0])
			}
		})
	}
}

func TestTab_ReplacesForgedProfile(t *testing.T) {
	opener := newOpener(t)
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: ProfileCookie, Value: "../other"})

	rec, err := runTab(t, opener, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected a fresh profile cookie")
	}
	if opener.calls[0].profile == "../other" {
		t.Fatalf("forged profile was used")
	}
}

func TestTab_RejectsInvalidTabID(t *testing.T) {
	opener := newOpener(t)
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set(TabHeader, "has space")

	_, err := runTab(t, opener, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if len(opener.calls) != 0 {
		t.Fatalf("no session should be opened for an invalid tab")
	}
}
