// Package config はサーバ設定の読み込み。
// 優先順位: デフォルト → TOML ファイル（TODO_CONFIG）→ 環境変数。
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const (
	StoreMemory   = "memory"
	StoreDatabase = "database"
)

type DBConfig struct {
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	// SQLite のファイルパス
	Path string `toml:"path"`
}

type Config struct {
	HTTPAddr       string   `toml:"http_addr"`
	MetricsAddr    string   `toml:"metrics_addr"`
	GRPCHealthAddr string   `toml:"grpc_health_addr"`
	Store          string   `toml:"store"`
	DB             DBConfig `toml:"db"`

	AuthSecret      string `toml:"auth_secret"`
	CORSAllowOrigin string `toml:"cors_allow_origin"`
	OTELExporter    string `toml:"otel_exporter"`
	LogLevel        string `toml:"log_level"`

	// duration は TOML でも文字列で書く（"3s" など）
	RequestTimeout  time.Duration `toml:"-"`
	ShutdownTimeout time.Duration `toml:"-"`
}

// fileConfig は TOML 用。duration を文字列で受ける。
type fileConfig struct {
	Config
	RequestTimeout  string `toml:"request_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Default はどこからも指定が無いときの値。
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		MetricsAddr:    ":9464",
		GRPCHealthAddr: ":50051",
		Store:          StoreMemory,
		DB: DBConfig{
			Driver:   "mysql",
			Host:     "127.0.0.1",
			Port:     "3306",
			User:     "root",
			Password: "root",
			Name:     "tododb",
			Path:     "todo.db",
		},
		CORSAllowOrigin: "http://localhost:5173",
		OTELExporter:    "none",
		LogLevel:        "info",
		RequestTimeout:  3 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load は設定を読み込む。ファイルの読み込み・パース失敗と不正な値はエラー。
// duration の不正値は warn してデフォルトに落とす（起動失敗にはしない）。
func Load(logger *zap.Logger) (Config, error) {
	return load(os.LookupEnv, logger)
}

func load(lookup func(string) (string, bool), logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Default()
	rawTimeout, rawShutdown := "", ""

	if path, ok := lookup("TODO_CONFIG"); ok && path != "" {
		fc := fileConfig{Config: cfg}
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
		cfg = fc.Config
		rawTimeout, rawShutdown = fc.RequestTimeout, fc.ShutdownTimeout
	}

	getenv := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	getenv("HTTP_ADDR", &cfg.HTTPAddr)
	getenv("METRICS_ADDR", &cfg.MetricsAddr)
	getenv("GRPC_HEALTH_ADDR", &cfg.GRPCHealthAddr)
	getenv("TODO_STORE", &cfg.Store)
	getenv("DB_DRIVER", &cfg.DB.Driver)
	getenv("DB_HOST", &cfg.DB.Host)
	getenv("DB_PORT", &cfg.DB.Port)
	getenv("DB_USER", &cfg.DB.User)
	getenv("DB_PASSWORD", &cfg.DB.Password)
	getenv("DB_NAME", &cfg.DB.Name)
	getenv("DB_PATH", &cfg.DB.Path)
	getenv("AUTH_SECRET", &cfg.AuthSecret)
	getenv("CORS_ALLOW_ORIGIN", &cfg.CORSAllowOrigin)
	getenv("OTEL_TRACES_EXPORTER", &cfg.OTELExporter)
	getenv("LOG_LEVEL", &cfg.LogLevel)
	getenv("HTTP_REQUEST_TIMEOUT", &rawTimeout)
	getenv("SHUTDOWN_TIMEOUT", &rawShutdown)

	cfg.RequestTimeout = parseDuration(logger, "HTTP_REQUEST_TIMEOUT", rawTimeout, cfg.RequestTimeout)
	cfg.ShutdownTimeout = parseDuration(logger, "SHUTDOWN_TIMEOUT", rawShutdown, cfg.ShutdownTimeout)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDuration(logger *zap.Logger, key, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("invalid duration, fallback to default",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Duration("default", def),
			zap.Error(err),
		)
		return def
	}
	return d
}

// Validate は組み合わせとして成り立たない設定を弾く。
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreDatabase:
		switch c.DB.Driver {
		case "mysql", "sqlite":
		default:
			return fmt.Errorf("unknown DB_DRIVER %q (want mysql or sqlite)", c.DB.Driver)
		}
	default:
		return fmt.Errorf("unknown TODO_STORE %q (want %s or %s)", c.Store, StoreMemory, StoreDatabase)
	}

	switch c.OTELExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unknown OTEL_TRACES_EXPORTER %q (want none or stdout)", c.OTELExporter)
	}
	return nil
}

// AuthEnabled は AUTH_SECRET が設定されているとき true。
func (c Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}
