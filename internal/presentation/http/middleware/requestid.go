package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"invoice-parser-api/internal/logging"
)

// RequestIDHeader リクエストIDのヘッダー名
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength クライアント指定のIDとして受け付ける最大長
const maxRequestIDLength = 128

// RequestID リクエストIDを付与するミドルウェア
//
// クライアントがX-Request-IDを送った場合はそれを使い、なければUUID v4を
// 生成する。IDはレスポンスヘッダーとコンテキストの両方に設定される。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}
