package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/configuration"
)

type statusWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.statusWritten {
		w.statusCode = http.StatusOK
		w.statusWritten = true
	}
	return w.ResponseWriter.Write(b)
}

// WithLogger attaches a request-scoped logrus entry (request id, method,
// path) to the context and logs one line per completed request.
func WithLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	conf := configuration.Use()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(conf.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			entry := logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
			})

			ctx := composables.WithLogger(r.Context(), entry)
			ctx = contextWithRequestID(ctx, requestID)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(ctx))

			entry.WithFields(logrus.Fields{
				"status":   sw.statusCode,
				"duration": time.Since(start).String(),
			}).Info("request completed")
		})
	}
}
