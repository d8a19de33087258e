package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError 設定項目ごとの検証エラー
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate 設定値を検証し、見つかったエラーをすべて返す
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Service.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "service.name",
			Message: "service name is required",
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.timeouts",
			Message: "server timeouts must be positive",
		})
	}

	// モデルエンドポイント
	if c.Model.EndpointURL == "" {
		errs = append(errs, ValidationError{
			Field:   "model.endpoint_url",
			Message: "model endpoint URL is required",
		})
	} else if u, err := url.Parse(c.Model.EndpointURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "model.endpoint_url",
			Message: "invalid model endpoint URL",
		})
	}

	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "model.name",
			Message: "model name is required",
		})
	}

	if c.Model.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "model.timeout",
			Message: "model timeout must be positive",
		})
	}

	if c.Image.FetchTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "image.fetch_timeout",
			Message: "image fetch timeout must be positive",
		})
	}

	if c.Image.MaxUploadBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "image.max_upload_bytes",
			Message: "max upload size must be positive",
		})
	}

	// OCRエンジン
	switch c.OCR.Engine {
	case EngineTesseract:
		if c.OCR.Tesseract.Binary == "" {
			errs = append(errs, ValidationError{
				Field:   "ocr.tesseract.binary",
				Message: "tesseract binary is required",
			})
		}
	case EngineAzure:
		if c.OCR.Azure.Endpoint == "" || c.OCR.Azure.APIKey == "" {
			errs = append(errs, ValidationError{
				Field:   "ocr.azure",
				Message: "azure endpoint and api_key are required for the azure engine",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "ocr.engine",
			Message: fmt.Sprintf("unknown OCR engine: %s", c.OCR.Engine),
		})
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			errs = append(errs, ValidationError{
				Field:   "cache.ttl",
				Message: "cache ttl must be positive",
			})
		}
		if c.Redis.Host == "" || c.Redis.Port <= 0 {
			errs = append(errs, ValidationError{
				Field:   "redis",
				Message: "redis host and port are required when cache is enabled",
			})
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level: %s", c.Log.Level),
		})
	}

	return errs
}
