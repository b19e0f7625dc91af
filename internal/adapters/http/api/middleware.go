package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/kartboard/pkg/metrics"
)

// unmatchedRoute labels requests that no route pattern matched.
const unmatchedRoute = "unmatched"

type errorCodeKey struct{}

// errorCode carries the response code chosen by fail back to the metrics
// middleware.
type errorCode struct{ value string }

// MetricsMiddleware records request count, latency and errors, labelled by
// the chi route pattern that served the request. Errors rendered through
// fail carry their response code as the error type; any other error status
// is labelled from its status text.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		code := &errorCode{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), errorCodeKey{}, code)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		endpoint := routePattern(r)
		statusStr := strconv.Itoa(status)
		metrics.RecordHTTPRequest(endpoint, r.Method, statusStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusStr, float64(time.Since(start).Milliseconds()))

		if status < http.StatusBadRequest {
			return
		}
		errorType := code.value
		if errorType == "" {
			errorType = statusErrorType(status)
		}
		metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
		metrics.RecordErrorByType(errorType, errorSeverity(status))
	})
}

// markErrorCode hands code to the metrics middleware serving r, if any.
func markErrorCode(r *http.Request, code string) {
	if c, ok := r.Context().Value(errorCodeKey{}).(*errorCode); ok {
		c.value = code
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	p := rctx.RoutePattern()
	if p == "" || strings.HasSuffix(p, "/*") {
		return unmatchedRoute
	}
	return p
}

// statusErrorType turns a status such as 504 into "gateway_timeout".
func statusErrorType(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "unknown"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}

func errorSeverity(status int) string {
	if status >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}
