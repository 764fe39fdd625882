package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

func withLogging(l *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		l.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("from", r.RemoteAddr),
			zap.Duration("took", time.Since(start)),
		)
	})
}
