package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/http/viewmodels"
)

const (
	flashToastCookieName = "mp_toast"
	flashToastMaxAge     = 30 * time.Second
)

// setFlashToast stores toast for the next rendered page. Redirect handlers
// use it; the page that pops it shows the toast once.
func setFlashToast(c *echo.Context, toast viewmodels.ToastViewData) {
	toast, ok := cleanToast(toast)
	if !ok {
		return
	}
	payload, err := json.Marshal(toast)
	if err != nil {
		return
	}
	c.SetCookie(flashCookie(c, base64.RawURLEncoding.EncodeToString(payload), int(flashToastMaxAge/time.Second)))
}

// popFlashToast returns the pending toast, if any, and expires the cookie.
// Tampered or empty payloads are dropped.
func popFlashToast(c *echo.Context) *viewmodels.ToastViewData {
	cookie, err := c.Cookie(flashToastCookieName)
	if err != nil || cookie == nil {
		return nil
	}

	expired := flashCookie(c, "", -1)
	expired.Expires = time.Unix(0, 0)
	c.SetCookie(expired)

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var toast viewmodels.ToastViewData
	if err := json.Unmarshal(raw, &toast); err != nil {
		return nil
	}
	toast, ok := cleanToast(toast)
	if !ok {
		return nil
	}
	return &toast
}

func flashCookie(c *echo.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     flashToastCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

func cleanToast(t viewmodels.ToastViewData) (viewmodels.ToastViewData, bool) {
	t.Category = normalizeToastCategory(t.Category)
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	return t, t.Title != "" || t.Description != ""
}

func normalizeToastCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	switch category {
	case "success", "error", "warning", "info":
		return category
	default:
		return "info"
	}
}
