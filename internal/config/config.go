package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL string // 空ならPOSTGRES_*から組み立てる

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string // localhost
	PostgresPort     int    // 5432
	PostgresSSLMode  string // disable

	JWTSecret string        // JWT署名シークレット
	JWTTTL    time.Duration // アクセストークンの有効期限（1h）

	PaymongoSecretKey     string
	PaymongoBaseURL       string
	PaymongoWebhookSecret string // 空なら署名検証しない

	PaymentTimeout time.Duration // 未払い注文の自動キャンセルまで（24h）
	SweepSchedule  string        // cron spec（@every 1m）

	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error
	FEURL    string // フロントURL（CORSで使う）

	CatalogPath string // 空なら同梱のカタログ
}

func (c Config) IsProd() bool {
	return c.GoEnv == EnvProd
}

// postgresの接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
	}
	return u.String()
}

// .envがあれば読み込む（無くてもエラーにしない）。既にある環境変数は上書きしない
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := intOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	jwtTTL, err := durationOr("JWT_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	timeout, err := durationOr("ORDER_PAYMENT_TIMEOUT", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: strings.TrimPrefix(getOr("PORT", "8080"), ":"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getOr("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getOr("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    jwtTTL,

		PaymongoSecretKey:     os.Getenv("PAYMONGO_SECRET_KEY"),
		PaymongoBaseURL:       getOr("PAYMONGO_BASE_URL", "https://api.paymongo.com/v1"),
		PaymongoWebhookSecret: os.Getenv("PAYMONGO_WEBHOOK_SECRET"),

		PaymentTimeout: timeout,
		SweepSchedule:  getOr("SWEEP_SCHEDULE", "@every 1m"),

		GoEnv:    getOr("GO_ENV", EnvDev),
		LogLevel: getOr("LOG_LEVEL", "info"),
		FEURL:    getOr("FRONTEND_URL", "*"),

		CatalogPath: os.Getenv("CATALOG_PATH"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	//必須チェック
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be number: %w", err)
	}
	if c.DatabaseURL == "" {
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required (or DATABASE_URL)")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required (or DATABASE_URL)")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.GoEnv != EnvDev && c.GoEnv != EnvProd {
		return fmt.Errorf("GO_ENV must be %s or %s", EnvDev, EnvProd)
	}
	if c.IsProd() && c.PaymongoSecretKey == "" {
		return fmt.Errorf("PAYMONGO_SECRET_KEY is required in prod")
	}
	if c.PaymentTimeout <= 0 {
		return fmt.Errorf("ORDER_PAYMENT_TIMEOUT must be positive")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("SWEEP_SCHEDULE is invalid: %w", err)
	}
	return nil
}

func getOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration (e.g. 24h): %w", key, err)
	}
	return d, nil
}
