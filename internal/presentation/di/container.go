package di

import (
	"fmt"

	"invoice-parser-api/internal/config"
	"invoice-parser-api/internal/modules/invoice/domain"
	invoiceHandler "invoice-parser-api/internal/modules/invoice/presentation/handler"
	invoiceUsecase "invoice-parser-api/internal/modules/invoice/usecase"
	sharedAI "invoice-parser-api/internal/modules/shared/infrastructure/ai"
	sharedCache "invoice-parser-api/internal/modules/shared/infrastructure/cache"
	sharedImage "invoice-parser-api/internal/modules/shared/infrastructure/imageio"
	sharedOCR "invoice-parser-api/internal/modules/shared/infrastructure/ocr"
	"invoice-parser-api/internal/presentation/http/handler"
)

// Container DIコンテナ
type Container struct {
	cfg *config.Config

	// Shared Infrastructure
	imageLoader *sharedImage.Loader
	ocrRepo     domain.TextExtractor
	modelRepo   *sharedAI.ChatRepository
	cacheRepo   *sharedCache.RedisRepository

	// Invoice Module
	parseInvoiceUseCase *invoiceUsecase.ParseInvoiceUseCase
	invoiceHandler      *invoiceHandler.InvoiceHandler

	healthHandler *handler.HealthHandler
}

// NewContainer 新しいContainerを作成
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{cfg: cfg}

	// Shared Infrastructure: Image Loader
	container.imageLoader = sharedImage.NewLoader(&cfg.Image)

	// Shared Infrastructure: OCR Engine
	ocrRepo, err := NewTextExtractor(&cfg.OCR)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR engine: %w", err)
	}
	container.ocrRepo = ocrRepo

	// Shared Infrastructure: Model Repository
	container.modelRepo = sharedAI.NewChatRepository(&cfg.Model)

	// Shared Infrastructure: Cache Repository（有効時のみ接続）
	var resultCache domain.ResultCache
	if cfg.Cache.Enabled {
		cacheRepo, err := sharedCache.NewRedisRepository(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache repository: %w", err)
		}
		container.cacheRepo = cacheRepo
		resultCache = cacheRepo
	}

	// Invoice Module: UseCase
	container.parseInvoiceUseCase = invoiceUsecase.NewParseInvoiceUseCase(
		container.imageLoader,
		container.ocrRepo,
		container.modelRepo,
		resultCache,
		cfg.Cache.TTL,
	)

	// Invoice Module: Handler
	container.invoiceHandler = invoiceHandler.NewInvoiceHandler(
		container.parseInvoiceUseCase,
		cfg.Image.MaxUploadBytes,
	)

	// 型付きnilを渡さないよう、キャッシュ無効時はnilインターフェースにする
	var cachePinger handler.Pinger
	if container.cacheRepo != nil {
		cachePinger = container.cacheRepo
	}
	container.healthHandler = handler.NewHealthHandler(cfg.Service.Name, config.Version, cachePinger)

	return container, nil
}

// NewTextExtractor 設定されたOCRエンジンを作成
func NewTextExtractor(cfg *config.OCRConfig) (domain.TextExtractor, error) {
	switch cfg.Engine {
	case config.EngineTesseract, "":
		return sharedOCR.NewTesseractRepository(&cfg.Tesseract), nil
	case config.EngineAzure:
		return sharedOCR.NewAzureRepository(&cfg.Azure), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine: %s", cfg.Engine)
	}
}

// Config 設定を取得
func (c *Container) Config() *config.Config {
	return c.cfg
}

// ParseInvoiceUseCase 請求書解析ユースケースを取得
func (c *Container) ParseInvoiceUseCase() *invoiceUsecase.ParseInvoiceUseCase {
	return c.parseInvoiceUseCase
}

// InvoiceHandler 請求書解析ハンドラーを取得
func (c *Container) InvoiceHandler() *invoiceHandler.InvoiceHandler {
	return c.invoiceHandler
}

// HealthHandler ヘルスチェックハンドラーを取得
func (c *Container) HealthHandler() *handler.HealthHandler {
	return c.healthHandler
}

// CacheEnabled 結果キャッシュが有効か
func (c *Container) CacheEnabled() bool {
	return c.cacheRepo != nil
}

// Close リソースをクローズ
func (c *Container) Close() error {
	if c.cacheRepo != nil {
		if err := c.cacheRepo.Close(); err != nil {
			return fmt.Errorf("failed to close cache repository: %w", err)
		}
	}
	return nil
}
