package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/lobbyhub/internal/api/apierr"
	"github.com/mcoot/lobbyhub/internal/middleware"
	"github.com/mcoot/lobbyhub/internal/monitor"
)

// Recovery creates panic recovery middleware for the API
// Returns JSON error responses on panic
func Recovery(logger *slog.Logger, metrics *monitor.Metrics) func(http.Handler) http.Handler {
	var onPanic func()
	if metrics != nil {
		onPanic = metrics.Panics.Inc
	}
	return middleware.Recovery(logger, apiPanicHandler, onPanic)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
