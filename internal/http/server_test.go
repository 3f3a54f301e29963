package httpapp

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/http/handlers"
)

func TestHTTPErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		requestID  string
		wantStatus int
		want       []string
		wantExact  string
	}{
		{
			name:       "internal_error_is_generic",
			err:        errors.New("very sensitive error"),
			requestID:  "req-123",
			wantStatus: http.StatusInternalServerError,
			want:       []string{"Internal server error", "Reference: req-123", "Code: " + handlers.InternalErrorCode},
		},
		{
			name:       "http_not_found",
			err:        echo.NewHTTPError(http.StatusNotFound, "leaky not found"),
			wantStatus: http.StatusNotFound,
			want:       []string{"404 page not found"},
		},
		{
			name:       "echo_not_found",
			err:        echo.ErrNotFound,
			wantStatus: http.StatusNotFound,
			want:       []string{"404 page not found"},
		},
		{
			name:       "bad_request_uses_status_text",
			err:        echo.NewHTTPError(http.StatusBadRequest, "leaky bad request"),
			wantStatus: http.StatusBadRequest,
			wantExact:  http.StatusText(http.StatusBadRequest),
		},
		{
			name:       "csrf_forbidden_uses_status_text",
			err:        echo.NewHTTPError(http.StatusForbidden, "leaky invalid csrf token"),
			wantStatus: http.StatusForbidden,
			wantExact:  http.StatusText(http.StatusForbidden),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "http://example.com/x", nil), rec)
			if tc.requestID != "" {
				c.Set(handlers.ContextKeyRequestID, tc.requestID)
			}

			es := &EchoServer{h: &handlers.Handlers{}, e: e}
			es.httpErrorHandler(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status=%d want %d", rec.Code, tc.wantStatus)
			}
			body := rec.Body.String()
			if strings.Contains(body, "leaky") || strings.Contains(body, "sensitive") {
				t.Fatalf("response leaked error details: %q", body)
			}
			for _, want := range tc.want {
				if !strings.Contains(body, want) {
					t.Fatalf("body missing %q: %q", want, body)
				}
			}
			if tc.wantExact != "" && strings.TrimSpace(body) != tc.wantExact {
				t.Fatalf("body=%q want %q", strings.TrimSpace(body), tc.wantExact)
			}
		})
	}
}

func TestHTTPStatusFromErrorUsesStatusCoder(t *testing.T) {
	t.Parallel()

	tests := map[error]int{
		echo.ErrNotFound:   http.StatusNotFound,
		echo.ErrForbidden:  http.StatusForbidden,
		errors.New("boom"): http.StatusInternalServerError,
		echo.NewHTTPError(http.StatusFound, "redirect"): http.StatusInternalServerError,
	}
	for err, want := range tests {
		if got := httpStatusFromError(err); got != want {
			t.Fatalf("httpStatusFromError(%v) = %d, want %d", err, got, want)
		}
	}
}
