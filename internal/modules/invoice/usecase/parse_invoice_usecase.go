package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"invoice-parser-api/internal/modules/invoice/domain"
	"invoice-parser-api/internal/modules/invoice/prompt"
)

// Result 解析結果
type Result struct {
	Data     domain.InvoiceData
	CacheHit bool
}

// ParseInvoiceUseCase 画像から請求書JSONを得るユースケース
type ParseInvoiceUseCase struct {
	loader    domain.ImageLoader
	extractor domain.TextExtractor
	model     domain.InvoiceModel
	cache     domain.ResultCache
	cacheTTL  time.Duration
}

// NewParseInvoiceUseCase 新しいParseInvoiceUseCaseを作成。cacheはnilでよい
func NewParseInvoiceUseCase(
	loader domain.ImageLoader,
	extractor domain.TextExtractor,
	model domain.InvoiceModel,
	cache domain.ResultCache,
	cacheTTL time.Duration,
) *ParseInvoiceUseCase {
	return &ParseInvoiceUseCase{
		loader:    loader,
		extractor: extractor,
		model:     model,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// Parse 入力元を解決し、OCRとモデル呼び出しを経て請求書JSONを返す
func (uc *ParseInvoiceUseCase) Parse(ctx context.Context, src domain.ImageSource) (*Result, error) {
	data, err := uc.resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	key := CacheKey(data)
	if cached, ok := uc.lookup(ctx, key); ok {
		return &Result{Data: cached, CacheHit: true}, nil
	}

	text, err := uc.GetInvoiceText(ctx, data)
	if err != nil {
		return nil, err
	}

	invoice, err := uc.GetInvoiceData(ctx, text)
	if err != nil {
		return nil, err
	}

	uc.store(ctx, key, invoice)
	return &Result{Data: invoice}, nil
}

// GetInvoiceText 画像バイト列をデコードしてOCRにかける。空の結果は入力エラー
func (uc *ParseInvoiceUseCase) GetInvoiceText(ctx context.Context, data []byte) (string, error) {
	img, err := uc.loader.Decode(data)
	if err != nil {
		return "", domain.NewPipelineError(domain.KindInternal, domain.StepImage, err)
	}

	text, err := uc.extractor.ExtractText(ctx, img)
	if err != nil {
		return "", domain.NewPipelineError(domain.KindInternal, domain.StepOCR, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", domain.NewPipelineError(domain.KindInput, domain.StepOCR, domain.ErrNoTextDetected)
	}
	return text, nil
}

// GetInvoiceData OCRテキストからプロンプトを組み立て、モデルで請求書JSONにする
func (uc *ParseInvoiceUseCase) GetInvoiceData(ctx context.Context, text string) (domain.InvoiceData, error) {
	slog.Info("Preparing prompt for model...")

	conversation, err := prompt.BuildConversation(text)
	if err != nil {
		return nil, domain.NewPipelineError(domain.KindInternal, domain.StepModel, err)
	}

	invoice, err := uc.model.ParseInvoice(ctx, conversation)
	if err != nil {
		return nil, domain.NewPipelineError(domain.KindUpstream, domain.StepModel, err)
	}
	return invoice, nil
}

// ProviderName モデル名を返す
func (uc *ParseInvoiceUseCase) ProviderName() string {
	return uc.model.ProviderName()
}

// EngineName OCRエンジン名を返す
func (uc *ParseInvoiceUseCase) EngineName() string {
	return uc.extractor.EngineName()
}

// resolve ファイルを優先し、なければURLから取得する
func (uc *ParseInvoiceUseCase) resolve(ctx context.Context, src domain.ImageSource) ([]byte, error) {
	switch {
	case src.HasFile:
		return src.File, nil
	case strings.TrimSpace(src.URL) != "":
		data, err := uc.loader.Fetch(ctx, src.URL)
		if err != nil {
			return nil, domain.NewPipelineError(domain.KindUpstream, domain.StepImage,
				fmt.Errorf("failed to fetch image: %w", err))
		}
		return data, nil
	default:
		return nil, domain.NewPipelineError(domain.KindInput, domain.StepInput, domain.ErrNoImageInput)
	}
}

func (uc *ParseInvoiceUseCase) lookup(ctx context.Context, key string) (domain.InvoiceData, bool) {
	if uc.cache == nil {
		return nil, false
	}
	cached, err := uc.cache.Get(ctx, key)
	if err != nil {
		slog.Debug("Cache lookup missed", "key", key, "error", err)
		return nil, false
	}
	slog.Info("Returning cached invoice data", "key", key)
	return domain.InvoiceData(cached), true
}

// store キャッシュ書き込みの失敗はレスポンスに影響させない
func (uc *ParseInvoiceUseCase) store(ctx context.Context, key string, invoice domain.InvoiceData) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, key, invoice, uc.cacheTTL); err != nil {
		slog.Warn("Failed to store invoice data in cache", "key", key, "error", err)
	}
}

// CacheKey 画像バイト列のSHA-256（16進）
func CacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
