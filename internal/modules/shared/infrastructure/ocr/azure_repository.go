package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"

	"invoice-parser-api/internal/config"
)

// printedTextRecognizer Azureクライアントのうち使用する部分（テスト用Seam）
type printedTextRecognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, imageParameter io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// AzureRepository Azure Computer VisionによるOCR実装
type AzureRepository struct {
	client printedTextRecognizer
}

// NewAzureRepository 新しいAzureRepositoryを作成
func NewAzureRepository(cfg *config.AzureConfig) *AzureRepository {
	client := computervision.New(cfg.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.APIKey)

	return &AzureRepository{client: &client}
}

// ExtractText 画像をJPEGで送信し、認識結果を行単位のテキストにする
func (r *AzureRepository) ExtractText(ctx context.Context, img image.Image) (string, error) {
	logStart(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return "", fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	result, err := r.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(&buf),
		computervision.OcrLanguagesUnk,
	)
	if err != nil {
		return "", fmt.Errorf("azure OCR failed: %w", err)
	}

	text := joinOCRResult(result)
	logDone(text)
	return text, nil
}

// EngineName エンジン名を返す
func (r *AzureRepository) EngineName() string {
	return "azure"
}

// joinOCRResult 単語をスペース、行を改行でつなぐ
func joinOCRResult(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}

	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}

	return strings.Join(lines, "\n")
}
