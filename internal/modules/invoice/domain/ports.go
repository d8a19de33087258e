package domain

import (
	"context"
	"image"
	"time"
)

// ImageLoader 画像の取得とデコード
type ImageLoader interface {
	// Fetch URLから画像バイト列を取得（2xx以外はエラー）
	Fetch(ctx context.Context, url string) ([]byte, error)

	// Decode バイト列をビットマップにデコード
	Decode(data []byte) (image.Image, error)
}

// TextExtractor OCRでビットマップからテキストを抽出
type TextExtractor interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)

	// EngineName OCRエンジン名を返す
	EngineName() string
}

// InvoiceModel 会話を言語モデルに送り、請求書JSONを得る
type InvoiceModel interface {
	ParseInvoice(ctx context.Context, conversation Conversation) (InvoiceData, error)

	// ProviderName モデル名を返す
	ProviderName() string
}

// ResultCache 解析結果のキャッシュ
type ResultCache interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
