package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	deliverycontext "planhub/internal/delivery/context"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware_Process(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reused bool
	}{
		{name: "generated when absent", header: ""},
		{name: "caller id reused", header: "req-42", reused: true},
		{name: "oversized id replaced", header: strings.Repeat("x", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(deliverycontext.HeaderXRequestID, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seenID string
			var seenTrigger deliverycontext.Trigger
			mw := NewRequestIDMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))
			err := mw.Process(func(c echo.Context) error {
				ctx := c.Request().Context()
				seenID = deliverycontext.RequestIDFrom(ctx)
				seenTrigger = deliverycontext.TriggerFrom(ctx)

				return c.NoContent(http.StatusNoContent)
			})(c)
			require.NoError(t, err)

			got := rec.Header().Get(deliverycontext.HeaderXRequestID)
			require.NotEmpty(t, got)
			assert.LessOrEqual(t, len(got), maxRequestIDLength)
			if tt.reused {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
			}
			assert.Equal(t, got, seenID)
			assert.Equal(t, got, deliverycontext.RequestID(c))
			assert.Equal(t, deliverycontext.TriggerHTTP, seenTrigger)
		})
	}
}
