// Package logging プロセス全体で使うslogロガーを構築する
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"invoice-parser-api/internal/config"
)

// Logger ロガーと、ログファイルを閉じるためのハンドル
type Logger struct {
	*slog.Logger
	file *os.File
}

// New 設定からロガーを作成する
//
// 標準出力とログファイルの両方にJSONで出力する。ログディレクトリが
// 作成・オープンできない場合は標準出力のみで続行する。
func New(cfg *config.Config, stdout io.Writer) *Logger {
	level := ParseLevel(cfg.Log.Level)

	var (
		w        = stdout
		file     *os.File
		fileErr  error
		filePath = filepath.Join(cfg.Log.Dir, cfg.Log.FileName)
	)

	if cfg.Log.Dir != "" && cfg.Log.FileName != "" {
		file, fileErr = openLogFile(cfg.Log.Dir, filePath)
		if fileErr == nil {
			w = io.MultiWriter(stdout, file)
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With("service", cfg.Service.Name)

	if fileErr != nil {
		logger.Warn("Log file unavailable, logging to stdout only",
			"path", filePath,
			"error", fileErr,
		)
	}

	return &Logger{Logger: logger, file: file}
}

// ParseLevel ログレベル文字列をslog.Levelに変換（不明な値はInfo）
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close ログファイルを閉じる。2回目以降は何もしない
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func openLogFile(dir, path string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
