package authn

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/auth/providers"
	"github.com/medportal/medportal/internal/db"
	"github.com/medportal/medportal/internal/session"
)

const (
	ContextKeyStore     = "auth_session_store"
	ContextKeyNavigator = "auth_navigator"
	ContextKeyCrossRole = "auth_cross_role_guard"
)

// StoreFromContext returns the request's session store. Requests that did not
// pass through LoadSession get an empty, unpersisted store.
func StoreFromContext(c *echo.Context) *session.Store {
	if s, ok := c.Get(ContextKeyStore).(*session.Store); ok && s != nil {
		return s
	}
	s := session.Open(c.Request().Context(), nil, c.Logger())
	c.Set(ContextKeyStore, s)
	return s
}

func PrincipalFromContext(c *echo.Context) (auth.Principal, bool) {
	p := StoreFromContext(c).Current()
	if p == nil {
		return auth.Principal{}, false
	}
	return *p, true
}

// LoadSession opens the session store for the request from the scs session
// and reconciles it with the user directory, so role changes and
// deactivations made elsewhere take effect on the next request.
func LoadSession(sessions *scs.SessionManager, users db.Directory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			ctx := c.Request().Context()
			store := session.Open(ctx, session.NewSCSPersister(sessions), c.Logger())
			if err := RefreshPrincipal(ctx, store, users); err != nil {
				return err
			}
			c.Set(ContextKeyStore, store)
			return next(c)
		}
	}
}

// RefreshPrincipal replaces the stored principal with the directory's current
// view of the account, or clears it when the account is gone or inactive.
func RefreshPrincipal(ctx context.Context, store *session.Store, users db.Directory) error {
	p := store.Current()
	if p == nil || users == nil {
		return nil
	}

	user, err := users.GetUser(ctx, p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Clear(ctx)
		}
		return err
	}
	if !user.IsActive {
		return store.Clear(ctx)
	}

	fresh := providers.PrincipalFromUser(user, p.Method)
	if fresh.Equal(*p) {
		return nil
	}
	return store.SetPrincipal(ctx, fresh)
}

func isAPIRequest(c *echo.Context) bool {
	return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Request().URL.Path, "/api/")
}

func isHX(c *echo.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.Request().Header.Get("HX-Request")), "true")
}

// Redirect sends the client to location, using HX-Redirect for htmx
// requests so the whole page navigates. The response shape depends on
// HX-Request, so it is always listed in Vary.
func Redirect(c *echo.Context, location string) error {
	varyOnHX(c)
	if isHX(c) {
		c.Response().Header().Set("HX-Redirect", location)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, location)
}

func varyOnHX(c *echo.Context) {
	header := c.Response().Header()
	for _, line := range header.Values(echo.HeaderVary) {
		for _, token := range strings.Split(line, ",") {
			token = strings.TrimSpace(token)
			if token == "*" || strings.EqualFold(token, "HX-Request") {
				return
			}
		}
	}
	header.Add(echo.HeaderVary, "HX-Request")
}

func handleUnauth(c *echo.Context, loginRoute string) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	location := loginRoute
	if c.Request().Method == http.MethodGet {
		if next := SanitizeNext(c.Request().URL.RequestURI()); next != "" {
			location = loginRoute + "?next=" + url.QueryEscape(next)
		}
	}
	return Redirect(c, location)
}

// SanitizeNext returns next when it is a same-origin path worth returning to
// after sign-in, otherwise "". The site root and the sign-in pages themselves
// are rejected since they are public.
func SanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || len(next) > 2048 {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || u.Scheme != "" {
		return ""
	}
	if u.Path == "/" {
		return ""
	}
	for _, reserved := range []string{"/login", "/signup", "/logout"} {
		if u.Path == reserved || strings.HasPrefix(u.Path, reserved+"/") {
			return ""
		}
	}
	if strings.Contains(next, "\\") {
		return ""
	}
	lower := strings.ToLower(next)
	if strings.Contains(lower, "%2f") || strings.Contains(lower, "%5c") {
		return ""
	}
	if strings.ContainsAny(next, "\r\n\t") {
		return ""
	}
	return next
}
