package router

import (
	"net/http"

	"invoice-parser-api/internal/presentation/di"
	"invoice-parser-api/internal/presentation/http/middleware"
)

// ParseInvoicePath 請求書解析エンドポイント
const ParseInvoicePath = "/parse-invoice/"

// NewRouter 新しいルーターを作成
func NewRouter(container *di.Container) http.Handler {
	mux := http.NewServeMux()

	// Invoice API ハンドラー
	mux.Handle(ParseInvoicePath+"{$}", container.InvoiceHandler())
	mux.Handle("/parse-invoice", container.InvoiceHandler())

	// Health check
	mux.Handle("/health", container.HealthHandler())

	mux.HandleFunc("/", notFound)

	// ミドルウェアの適用（外側から CORS -> RequestID -> Logger -> Recovery）
	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.LoggerWithHealthCheck(h)
	h = middleware.RequestID(h)
	h = middleware.CORS(h)

	return h
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"Not found"}` + "\n"))
}
