package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"invoice-parser-api/internal/logging"
	"invoice-parser-api/internal/modules/invoice/domain"
	"invoice-parser-api/internal/modules/invoice/usecase"
)

// ParseInvoiceUseCaseInterface 請求書解析ユースケースのインターフェース
type ParseInvoiceUseCaseInterface interface {
	Parse(ctx context.Context, src domain.ImageSource) (*usecase.Result, error)
}

// InvoiceHandler 請求書解析のハンドラー
type InvoiceHandler struct {
	useCase        ParseInvoiceUseCaseInterface
	maxUploadBytes int64
}

// NewInvoiceHandler 新しいInvoiceHandlerを作成
func NewInvoiceHandler(useCase ParseInvoiceUseCaseInterface, maxUploadBytes int64) *InvoiceHandler {
	return &InvoiceHandler{
		useCase:        useCase,
		maxUploadBytes: maxUploadBytes,
	}
}

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP 画像ファイルまたは画像URLを受け取り、請求書JSONを返す
func (h *InvoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	src, err := h.readSource(w, r)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	result, err := h.useCase.Parse(ctx, src)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result.Data)
}

// readSource フォームからファイル（優先）と画像URLを読み出す
func (h *InvoiceHandler) readSource(w http.ResponseWriter, r *http.Request) (domain.ImageSource, error) {
	var src domain.ImageSource

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return src, domain.NewPipelineError(domain.KindInput, domain.StepInput,
			fmt.Errorf("invalid form data: %w", err))
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer func() {
			_ = file.Close()
		}()

		// ファイル未選択のフォーム送信は空のパートになる
		if header.Filename != "" || header.Size > 0 {
			data, err := io.ReadAll(file)
			if err != nil {
				return src, domain.NewPipelineError(domain.KindInput, domain.StepInput,
					fmt.Errorf("failed to read uploaded file: %w", err))
			}
			slog.Info("Received file", "filename", header.Filename, "bytes", len(data))
			src.HasFile = true
			src.FileName = header.Filename
			src.File = data
			return src, nil
		}
	}

	src.URL = r.PostFormValue("image_url")
	if src.URL != "" {
		slog.Info("Fetching image from URL", "url", src.URL)
	}
	return src, nil
}

// fail エラーを一度だけ記録し、分類に応じたステータスで返す
func (h *InvoiceHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)

	attrs := []any{
		"kind", domain.KindOf(err).String(),
		"status", status,
		"error", err,
		"request_id", logging.RequestID(ctx),
	}
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		attrs = append(attrs, "step", string(pe.Step))
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Invoice processing failed", attrs...)
	} else {
		slog.Warn("Invoice request rejected", attrs...)
	}

	h.sendError(w, err.Error(), status)
}

// statusFor エラー分類からHTTPステータスへの唯一の対応
func statusFor(err error) int {
	if domain.KindOf(err) == domain.KindInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *InvoiceHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
