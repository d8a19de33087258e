package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// pingTimeout 依存サービス確認のタイムアウト
const pingTimeout = 2 * time.Second

// Pinger 疎通確認できる依存サービス
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler ヘルスチェックのハンドラー
type HealthHandler struct {
	service string
	version string
	cache   Pinger
}

// NewHealthHandler 新しいHealthHandlerを作成。cacheがnilなら確認しない
func NewHealthHandler(service, version string, cache Pinger) *HealthHandler {
	return &HealthHandler{service: service, version: version, cache: cache}
}

// HealthResponse ヘルスチェックのレスポンス
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Cache   string `json:"cache,omitempty"`
}

// ServeHTTP ヘルスチェックを処理
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"Method not allowed"}` + "\n"))
		return
	}

	response := HealthResponse{
		Status:  "ok",
		Service: h.service,
		Version: h.version,
	}
	statusCode := http.StatusOK

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := h.cache.Ping(ctx); err != nil {
			slog.Warn("Cache ping failed", "error", err)
			response.Status = "degraded"
			response.Cache = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else {
			response.Cache = "ok"
		}
	}

	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
