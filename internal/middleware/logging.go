package middleware

import (
	"net/http"
	"time"

	"monopay-be/internal/logger"
	"monopay-be/internal/utils"

	"go.uber.org/zap"
)

// responseRecorder lets us capture HTTP status codes
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every HTTP request once it is served.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_ip", r.RemoteAddr),
		}
		if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
			fields = append(fields, zap.Uint("user_id", userID))
		}

		log := logger.FromCtx(r.Context())
		if rec.statusCode >= http.StatusInternalServerError {
			log.Error("HTTP Request", fields...)
			return
		}
		log.Info("HTTP Request", fields...)
	})
}
