package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config アプリケーション全体の設定
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Image   ImageConfig   `yaml:"image"`
	OCR     OCRConfig     `yaml:"ocr"`
	Cache   CacheConfig   `yaml:"cache"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
}

// ServiceConfig サービス識別情報
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig HTTPサーバーの設定
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ModelConfig チャットモデル（Ollama互換エンドポイント）の設定
type ModelConfig struct {
	EndpointURL string        `yaml:"endpoint_url"`
	Name        string        `yaml:"name"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ImageConfig 画像取得・デコードの設定
type ImageConfig struct {
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	Enhance        bool          `yaml:"enhance"`
}

// OCRConfig OCRエンジンの設定
type OCRConfig struct {
	Engine    string          `yaml:"engine"`
	Tesseract TesseractConfig `yaml:"tesseract"`
	Azure     AzureConfig     `yaml:"azure"`
}

// TesseractConfig tesseract CLIの設定
type TesseractConfig struct {
	Binary string `yaml:"binary"`
}

// AzureConfig Azure Computer Visionの設定
type AzureConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// CacheConfig 解析結果キャッシュの設定
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// RedisConfig Redisの設定
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig ログ出力の設定
type LogConfig struct {
	Dir      string `yaml:"dir"`
	FileName string `yaml:"file_name"`
	Level    string `yaml:"level"`
}

// Version アプリケーションのバージョン（-ldflagsで上書き可能）
var Version = "1.0.0"

const (
	// EngineTesseract ローカルのtesseract CLIを使う
	EngineTesseract = "tesseract"
	// EngineAzure Azure Computer Vision OCRを使う
	EngineAzure = "azure"
)

// Load 設定ファイルを読み込む
//
// カレントディレクトリの.envがあれば先に環境変数へ読み込む。
// 設定ファイルが存在しない場合はデフォルト設定を返す。
func Load(configPath string) (*Config, error) {
	// .envは任意（存在しなくてもエラーにしない）
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		mergeWithEnv(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 環境変数の展開
	dataStr := os.ExpandEnv(string(data))

	// デフォルト値の上にファイルの値を重ねる
	if err := yaml.Unmarshal([]byte(dataStr), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeWithEnv(cfg)

	return cfg, nil
}

// DefaultConfig デフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "invoice-process",
		},
		Server: ServerConfig{
			Port:         9005,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Model: ModelConfig{
			EndpointURL: "http://localhost:11434/api/chat",
			Name:        "mistral:latest",
			Timeout:     120 * time.Second,
		},
		Image: ImageConfig{
			FetchTimeout:   30 * time.Second,
			MaxUploadBytes: 10 << 20,
			Enhance:        false,
		},
		OCR: OCRConfig{
			Engine: EngineTesseract,
			Tesseract: TesseractConfig{
				Binary: "tesseract",
			},
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     24 * time.Hour,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
		},
		Log: LogConfig{
			Dir:      "/var/log/czentrix/",
			FileName: "invoice_process.log",
			Level:    "info",
		},
	}
}

// mergeWithEnv 環境変数で上書きする
func mergeWithEnv(cfg *Config) {
	if v := os.Getenv("MODEL_ENDPOINT_URL"); v != "" {
		cfg.Model.EndpointURL = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("AZURE_VISION_ENDPOINT"); v != "" {
		cfg.OCR.Azure.Endpoint = v
	}
	if v := os.Getenv("AZURE_VISION_KEY"); v != "" {
		cfg.OCR.Azure.APIKey = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Log.Dir = v
	}
}

// Save 設定をファイルに保存する
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
