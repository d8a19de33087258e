package imageio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"invoice-parser-api/internal/config"
	"invoice-parser-api/internal/modules/invoice/domain"
)

// maxErrorBody エラー時に保持するレスポンスボディの上限
const maxErrorBody = 512

// Loader 画像の取得・デコード実装
type Loader struct {
	httpClient *http.Client
	maxBytes   int64
	enhance    bool
}

// NewLoader 新しいLoaderを作成
func NewLoader(cfg *config.ImageConfig) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		maxBytes:   cfg.MaxUploadBytes,
		enhance:    cfg.Enhance,
	}
}

// SetHTTPClient テスト用にHTTPクライアントを設定
func (l *Loader) SetHTTPClient(client *http.Client) {
	l.httpClient = client
}

// Fetch URLから画像を取得
func (l *Loader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	// 上限+1バイトまで読み、超過を検出する
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("image at %s exceeds %d bytes", url, l.maxBytes)
	}

	slog.Debug("Image fetched", "url", url, "bytes", len(data), "content_type", resp.Header.Get("Content-Type"))
	return data, nil
}

// Decode バイト列を画像にデコード（EXIFの向きを補正）
func (l *Loader) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot identify image file: empty data")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("cannot identify image file: %w", err)
	}

	if l.enhance {
		img = Enhance(img)
	}

	return img, nil
}

// Enhance OCR向けに画像を補正する
func Enhance(src image.Image) image.Image {
	// グレースケール化してコントラストを上げ、文字のエッジを立てる
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)
	return img
}
