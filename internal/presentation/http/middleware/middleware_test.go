package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"invoice-parser-api/internal/logging"
)

// captureLog デフォルトロガーの出力をバッファに切り替える
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "正常系: 解析エンドポイントのプリフライト",
			method:     http.MethodOptions,
			path:       "/parse-invoice/",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "正常系: 解析リクエストは次へ渡す",
			method:     http.MethodPost,
			path:       "/parse-invoice/",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "正常系: ヘルスチェックは次へ渡す",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantNext {
				t.Errorf("next called = %v, want %v", called, tt.wantNext)
			}

			h := rec.Header()
			if h.Get("Access-Control-Allow-Origin") != "*" {
				t.Error("Access-Control-Allow-Origin header not set correctly")
			}
			if h.Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" {
				t.Errorf("Access-Control-Allow-Methods = %q", h.Get("Access-Control-Allow-Methods"))
			}
			if !strings.Contains(h.Get("Access-Control-Allow-Headers"), RequestIDHeader) {
				t.Errorf("Access-Control-Allow-Headers = %q", h.Get("Access-Control-Allow-Headers"))
			}
			if !strings.Contains(h.Get("Access-Control-Expose-Headers"), "X-Cache") {
				t.Errorf("Access-Control-Expose-Headers = %q", h.Get("Access-Control-Expose-Headers"))
			}
		})
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{name: "正常系: 解析成功", method: http.MethodPost, path: "/parse-invoice/", status: http.StatusOK, body: `{"total_amount":10}`},
		{name: "異常系: 入力なし", method: http.MethodPost, path: "/parse-invoice", status: http.StatusBadRequest, body: `{"error":"No file or image_url provided"}`},
		{name: "異常系: 存在しないパス", method: http.MethodGet, path: "/missing", status: http.StatusNotFound, body: `{"error":"Not found"}`},
		{name: "境界値: 空のボディ", method: http.MethodOptions, path: "/parse-invoice/", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status || rec.Body.String() != tt.body {
				t.Errorf("response = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.status, tt.body)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to decode log entry: %v (%s)", err, buf.String())
			}
			if entry["method"] != tt.method || entry["path"] != tt.path {
				t.Errorf("logged %v %v, want %s %s", entry["method"], entry["path"], tt.method, tt.path)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["bytes"] != float64(len(tt.body)) {
				t.Errorf("bytes = %v, want %d", entry["bytes"], len(tt.body))
			}
		})
	}
}

func TestLoggerWithHealthCheck(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLog   bool
		wantLevel string
	}{
		{name: "正常系: 正常なヘルスチェックは記録しない", path: "/health", status: http.StatusOK},
		{name: "異常系: 劣化したヘルスチェックはエラー", path: "/health", status: http.StatusServiceUnavailable, wantLog: true, wantLevel: "ERROR"},
		{name: "正常系: 解析リクエストは記録する", path: "/parse-invoice/", status: http.StatusOK, wantLog: true, wantLevel: "INFO"},
		{name: "異常系: 解析失敗も通常のアクセスログ", path: "/parse-invoice/", status: http.StatusInternalServerError, wantLog: true, wantLevel: "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			handler := LoggerWithHealthCheck(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if !tt.wantLog {
				if buf.Len() != 0 {
					t.Errorf("Expected no log output, got %s", buf.String())
				}
				return
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to decode log entry: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusBadRequest)
	for _, chunk := range []string{`{"error":`, `"No text detected in the image."}`} {
		if _, err := rw.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	want := `{"error":"No text detected in the image."}`
	if rw.statusCode != http.StatusBadRequest || rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d/%d, want 400", rw.statusCode, rec.Code)
	}
	if rw.written != int64(len(want)) || rec.Body.String() != want {
		t.Errorf("written = %d body = %q", rw.written, rec.Body.String())
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name       string
		panicValue any
	}{
		{name: "異常系: 文字列のpanic", panicValue: "ocr engine crashed"},
		{name: "異常系: errorのpanic", panicValue: http.ErrAbortHandler},
		{name: "異常系: 数値のpanic", panicValue: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			handler := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.panicValue)
			})))

			req := httptest.NewRequest(http.MethodPost, "/parse-invoice/", nil)
			req.Header.Set(RequestIDHeader, "req-panic")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status code = %d, want 500", rec.Code)
			}
			if rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %s", rec.Header().Get("Content-Type"))
			}
			var response ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Error != "Internal server error" {
				t.Errorf("Error message = %s", response.Error)
			}
			if !strings.Contains(buf.String(), `"request_id":"req-panic"`) {
				t.Errorf("panic log missing request id: %s", buf.String())
			}
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	var seenID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("test"))
	})

	// ルーターと同じ順序: CORS -> RequestID -> Logger -> Recovery -> Handler
	chain := CORS(RequestID(LoggerWithHealthCheck(Recovery(handler))))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header not set in middleware chain")
	}
	if seenID == "" || seenID != rec.Header().Get(RequestIDHeader) {
		t.Errorf("request id in context = %q, header = %q", seenID, rec.Header().Get(RequestIDHeader))
	}
}

func TestMiddlewareChain_WithPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic in chain")
	})

	chain := CORS(RequestID(LoggerWithHealthCheck(Recovery(handler))))

	req := httptest.NewRequest(http.MethodPost, "/parse-invoice/", nil)
	rec := httptest.NewRecorder()

	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	// CORSヘッダーとリクエストIDはpanicの前に設定されているはず
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header not set even before panic")
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("X-Request-ID not set even before panic")
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantKeep bool
	}{
		{
			name:     "正常系: ヘッダーなしなら生成",
			header:   "",
			wantKeep: false,
		},
		{
			name:     "正常系: クライアント指定のIDを使う",
			header:   "client-req-1",
			wantKeep: true,
		},
		{
			name:     "境界値: 長すぎるIDは置き換える",
			header:   strings.Repeat("x", 129),
			wantKeep: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = logging.RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got != ctxID {
				t.Errorf("header = %q, context = %q", got, ctxID)
			}
			if tt.wantKeep {
				if got != tt.header {
					t.Errorf("request id = %q, want %q", got, tt.header)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("request id %q is not a UUID: %v", got, err)
			}
		})
	}
}
