package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"

	"invoice-parser-api/internal/config"
)

// TesseractRepository tesseract CLIによるOCR実装
type TesseractRepository struct {
	binary string
}

// NewTesseractRepository 新しいTesseractRepositoryを作成
func NewTesseractRepository(cfg *config.TesseractConfig) *TesseractRepository {
	return &TesseractRepository{binary: cfg.Binary}
}

// ExtractText 画像をPNGにして標準入力からtesseractへ渡す
func (r *TesseractRepository) ExtractText(ctx context.Context, img image.Image) (string, error) {
	logStart(img)

	var input bytes.Buffer
	if err := imaging.Encode(&input, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, "stdin", "stdout")
	cmd.Stdin = &input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract failed: %w", err)
	}

	text := stdout.String()
	logDone(text)
	return text, nil
}

// EngineName エンジン名を返す
func (r *TesseractRepository) EngineName() string {
	return "tesseract"
}

func logStart(img image.Image) {
	b := img.Bounds()
	slog.Info("Starting OCR on image...", "width", b.Dx(), "height", b.Dy())
}

func logDone(text string) {
	slog.Info("OCR completed", "chars", len(text))
}
