package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"invoice-parser-api/internal/config"
	"invoice-parser-api/internal/logging"
	"invoice-parser-api/internal/presentation/di"
	"invoice-parser-api/internal/presentation/http/router"
)

// AppConfig アプリケーション設定
type AppConfig struct {
	ConfigPath string
	Port       string
}

// ServerInterface サーバーインターフェース（Seam化）
type ServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App アプリケーション構造体（Seamパターン）
type App struct {
	config     *AppConfig
	cfg        *config.Config
	logger     *logging.Logger
	container  *di.Container
	server     *http.Server
	serverSeam ServerInterface // テスト用のSeam
	out        io.Writer
}

// NewApp 新しいAppを作成
func NewApp(appCfg *AppConfig) (*App, error) {
	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// PORT環境変数・引数が設定ファイルより優先
	if appCfg.Port != "" {
		port, err := strconv.Atoi(appCfg.Port)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", appCfg.Port, err)
		}
		cfg.Server.Port = port
	}
	appCfg.Port = strconv.Itoa(cfg.Server.Port)

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	logger := logging.New(cfg, os.Stdout)
	slog.SetDefault(logger.Logger)

	// DIコンテナの初期化
	container, err := di.NewContainer(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to initialize DI container: %w", err)
	}

	server := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router.NewRouter(container),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	app := &App{
		config:    appCfg,
		cfg:       cfg,
		logger:    logger,
		container: container,
		server:    server,
		out:       color.Output,
	}
	// デフォルトでは実際のサーバーを使用
	app.serverSeam = server

	return app, nil
}

// Start サーバーを起動
func (a *App) Start() error {
	a.printStartupMessage()
	slog.Info("Server starting", "addr", a.server.Addr)

	return a.serverSeam.ListenAndServe()
}

// printStartupMessage 起動メッセージを出力
func (a *App) printStartupMessage() {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgYellow)
	uc := a.container.ParseInvoiceUseCase()

	_, _ = title.Fprintf(a.out, "=== Invoice Parser API %s ===\n", config.Version)
	_, _ = label.Fprint(a.out, "Model:     ")
	_, _ = fmt.Fprintf(a.out, "%s (%s)\n", uc.ProviderName(), a.cfg.Model.EndpointURL)
	_, _ = label.Fprint(a.out, "OCR:       ")
	_, _ = fmt.Fprintln(a.out, uc.EngineName())
	_, _ = label.Fprint(a.out, "Cache:     ")
	if a.container.CacheEnabled() {
		_, _ = color.New(color.FgGreen).Fprintf(a.out, "redis %s:%d (ttl %s)\n", a.cfg.Redis.Host, a.cfg.Redis.Port, a.cfg.Cache.TTL)
	} else {
		_, _ = fmt.Fprintln(a.out, "disabled")
	}
	_, _ = fmt.Fprintf(a.out, "Server listening on http://0.0.0.0:%s\n\n", a.config.Port)
	_, _ = fmt.Fprintln(a.out, "Endpoints:")
	_, _ = fmt.Fprintln(a.out, "  GET  /health           - Health check")
	_, _ = fmt.Fprintln(a.out, "  POST /parse-invoice/   - Parse invoice image (file or image_url)")
	_, _ = fmt.Fprintln(a.out)
}

// Shutdown サーバーをシャットダウン
func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down server...")

	if err := a.serverSeam.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := a.container.Close(); err != nil {
		return fmt.Errorf("container close failed: %w", err)
	}

	slog.Info("Server stopped")
	return a.logger.Close()
}

// Run アプリケーションを実行（グレースフルシャットダウン付き）
func (a *App) Run() error {
	serverErr := make(chan error, 1)
	go func() {
		if err := a.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		_ = a.container.Close()
		_ = a.logger.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return a.Shutdown(ctx)
	}
}

// defaultConfigPath ~/.invoice-parser/config.yaml
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Failed to get home directory: %v. Using current directory.", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".invoice-parser", "config.yaml")
}

// parseAppConfig コマンドライン引数と環境変数からAppConfigを作る
//
// 設定ファイルは -config > CONFIG_PATH > デフォルトの順、
// ポートは -port > PORT > 設定ファイルの順で決まる。
func parseAppConfig(args []string, getenv func(string) string) (*AppConfig, error) {
	fs := flag.NewFlagSet("invoice-parser-api", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	port := fs.String("port", "", "listen port (overrides server.port)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	appCfg := &AppConfig{
		ConfigPath: *configPath,
		Port:       *port,
	}
	if appCfg.ConfigPath == "" {
		appCfg.ConfigPath = getenv("CONFIG_PATH")
	}
	if appCfg.ConfigPath == "" {
		appCfg.ConfigPath = defaultConfigPath()
	}
	if appCfg.Port == "" {
		appCfg.Port = getenv("PORT")
	}
	return appCfg, nil
}

// realMain 実際のmain処理（テスト可能にするため分離）
func realMain(args []string) error {
	appCfg, err := parseAppConfig(args, os.Getenv)
	if err != nil {
		return err
	}

	app, err := NewApp(appCfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	return app.Run()
}

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
