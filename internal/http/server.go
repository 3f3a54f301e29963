package httpapp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/config"
	"github.com/medportal/medportal/internal/db"
	"github.com/medportal/medportal/internal/http/authn"
	"github.com/medportal/medportal/internal/http/handlers"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewEchoServer creates the portal's HTTP handler. Every area in guard's
// table gets a route; the table must route each area exactly once.
func NewEchoServer(cfg config.Config, users db.Directory, sessions *scs.SessionManager, guard *access.Guard, logger *slog.Logger) (*EchoServer, error) {
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if guard == nil {
		guard = access.NewGuard(access.DefaultTable())
	}

	h := &handlers.Handlers{Cfg: cfg, Q: users, Sessions: sessions, Guard: guard}
	es := &EchoServer{h: h, e: echo.New()}
	if logger != nil {
		es.e.Logger = logger
	}
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es, nil
}

// ServeHTTP implements http.Handler.
func (es *EchoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	es.e.ServeHTTP(w, r)
}

func (es *EchoServer) registerRoutes() {
	es.e.Use(requestID)
	es.e.GET("/healthz", es.h.HandleHealthz)

	app := es.e.Group("")
	app.Use(echo.WrapMiddleware(es.h.Sessions.LoadAndSave))
	app.Use(authn.LoadSession(es.h.Sessions, es.h.Q))
	app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   es.h.Cfg.AuthCookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))

	gate := &authn.Gate{Guard: es.h.Guard, Denied: es.h.RenderAccessDenied}
	table := es.h.Guard.Table()
	route := func(area access.AreaPath) string { return table.Route(area) }

	pages := map[access.AreaPath]echo.HandlerFunc{
		access.AreaHome:           es.h.HandleHome,
		access.AreaLogin:          es.h.HandleLoginGet,
		access.AreaSignup:         es.h.HandleSignupGet,
		access.AreaAccessDenied:   es.h.HandleAccessDenied,
		access.AreaPatientProfile: es.h.HandleProfileGet,
		access.AreaAdminUsers:     es.h.HandleAdminUsers,
	}
	for _, area := range table.Areas() {
		handler, ok := pages[area.Path]
		if !ok {
			handler = es.h.HandleArea(area.Path)
		}
		app.GET(area.Route, handler, gate.Area(area.Path))
	}

	app.POST(route(access.AreaLogin), es.h.HandleLoginPost)
	app.POST(route(access.AreaSignup), es.h.HandleSignupPost)
	app.POST("/logout", es.h.HandleLogoutPost)
	app.POST(route(access.AreaPatientProfile), es.h.HandleProfilePost, gate.Area(access.AreaPatientProfile))
	app.POST(route(access.AreaAdminUsers)+"/roles", es.h.HandleAdminUserRoles, gate.Area(access.AreaAdminUsers))

	app.GET("/api/session", es.h.HandleAPISession)
	app.GET("/api/access", es.h.HandleAPIAccess)
}

func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

type statusCoder interface {
	StatusCode() int
}

func httpStatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := httpStatusFromError(err)
	requestID, _ := c.Get(handlers.ContextKeyRequestID).(string)

	switch status {
	case http.StatusInternalServerError:
		_ = es.h.RenderError(c, err)
	case http.StatusNotFound:
		_ = handlers.RenderNotFound(c)
	default:
		c.Logger().Debug("http error",
			"request_id", requestID,
			"status", status,
			"path", c.Request().URL.Path,
			"error", fmt.Sprint(err),
		)
		_ = c.String(status, http.StatusText(status))
	}
}
