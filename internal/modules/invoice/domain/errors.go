package domain

import (
	"errors"
	"fmt"
)

// ErrorKind パイプラインエラーの分類
type ErrorKind int

const (
	// KindInternal 想定外のエラー（デコード失敗、OCR失敗など）
	KindInternal ErrorKind = iota
	// KindInput クライアント起因のエラー
	KindInput
	// KindUpstream 画像取得先やモデルサービス起因のエラー
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Step エラーが発生した処理段階
type Step string

const (
	StepInput Step = "input"
	StepImage Step = "image"
	StepOCR   Step = "ocr"
	StepModel Step = "model"
)

var (
	// ErrNoImageInput ファイルもURLも指定されていない
	ErrNoImageInput = errors.New("Provide either an image file or an image URL.")
	// ErrNoTextDetected OCR結果が空
	ErrNoTextDetected = errors.New("No text detected in image.")
	// ErrMissingContent モデル応答にcontentがない
	ErrMissingContent = errors.New("No content found in model response.")
)

// PipelineError 処理段階と分類を持つエラー
type PipelineError struct {
	Kind ErrorKind
	Step Step
	Err  error
}

// NewPipelineError 新しいPipelineErrorを作成
func NewPipelineError(kind ErrorKind, step Step, err error) *PipelineError {
	return &PipelineError{Kind: kind, Step: step, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s step failed", e.Step)
	}
	return e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf エラーの分類を返す（PipelineError以外はKindInternal）
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// StatusError 上流サービスが2xx以外を返した
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%d error from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%d error from %s: %s", e.StatusCode, e.URL, e.Body)
}
