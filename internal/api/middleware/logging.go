package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/lobbyhub/internal/middleware"
	"github.com/mcoot/lobbyhub/internal/monitor"
)

// Logging creates request logging middleware for the API. When metrics is
// set, requests are also counted per route template.
func Logging(logger *slog.Logger, metrics *monitor.Metrics) func(http.Handler) http.Handler {
	var observe middleware.ObserveFunc
	if metrics != nil {
		observe = func(r *http.Request, status int, duration time.Duration) {
			metrics.ObserveRequest(r.Method, routeOf(r), status, duration)
		}
	}
	return middleware.Logging(logger.With(slog.String("component", "api")), observe)
}

// routeOf returns the mux path template that matched r, e.g. /api/v1/players/{id}
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
