package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"invoice-parser-api/internal/logging"
)

// responseWriter ステータスコードをキャプチャするためのラッパー
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logger アクセスログミドルウェア
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		logRequest(r, rw, time.Since(start))
	})
}

// LoggerWithHealthCheck 正常なヘルスチェックを除外するアクセスログミドルウェア
func LoggerWithHealthCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		if r.URL.Path == "/health" {
			// 異常時のみ
			if rw.statusCode != http.StatusOK {
				slog.Error("Health check failed",
					"status", rw.statusCode,
					"request_id", logging.RequestID(r.Context()),
				)
			}
			return
		}

		logRequest(r, rw, time.Since(start))
	})
}

func logRequest(r *http.Request, rw *responseWriter, duration time.Duration) {
	slog.Info("HTTP request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rw.statusCode,
		"bytes", rw.written,
		"duration", duration,
		"request_id", logging.RequestID(r.Context()),
	)
}
