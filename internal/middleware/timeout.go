package middleware

import (
	"context"
	"net/http"
	"time"

	"webchat-backend/pkg/api"

	"go.uber.org/zap"
)

// Timeout bounds each request with a deadline. Handlers that run past it
// see a cancelled context; the client gets a 504.
func Timeout(timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)
			done := make(chan struct{})

			go func() {
				defer func() {
					if err := recover(); err != nil {
						logger.Error("Panic in request handler",
							zap.Any("panic", err),
							zap.String("requestID", GetRequestIDFromRequest(r)),
						)
					}
					close(done)
				}()
				next.ServeHTTP(w, r)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn("Request timed out",
					zap.String("path", r.URL.Path),
					zap.Duration("timeout", timeout),
					zap.String("requestID", GetRequestIDFromRequest(r)),
				)
				api.Error(w, http.StatusGatewayTimeout, "Request timed out")
			}
		})
	}
}
