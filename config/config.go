package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	DBPath string

	DetectorBackend   string // remote, ws или onnx
	InferenceURL      string
	DetectorWSHost    string
	ModelPath         string
	ModelName         string
	DefaultConfidence float64
	InferenceTimeout  time.Duration

	CORSAllowOrigins []string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	EnableResultCache bool
	CacheTTL          time.Duration

	RequestTimeout     time.Duration
	MaxUploadBytes     int64
	DisplayOffsetHours int

	TelegramToken string

	AppVersion string
	LogLevel   string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "dental.db"),
		DetectorBackend:    strings.ToLower(getEnv("DETECTOR_BACKEND", "remote")),
		InferenceURL:       strings.TrimRight(getEnv("INFERENCE_URL", "http://localhost:5000"), "/"),
		DetectorWSHost:     getEnv("DETECTOR_WS_HOST", "localhost:5001"),
		ModelPath:          getEnv("MODEL_PATH", "./models/best.onnx"),
		ModelName:          getEnv("MODEL_NAME", "best.pt"),
		DefaultConfidence:  p.float("DEFAULT_CONFIDENCE", 0.25),
		InferenceTimeout:   p.seconds("INFERENCE_TIMEOUT", 10),
		CORSAllowOrigins:   splitList(os.Getenv("CORS_ALLOW_ORIGINS")),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           time.Duration(p.int("ACCESS_TOKEN_EXPIRE_MINUTES", 1440)) * time.Minute,
		BcryptCost:         p.int("BCRYPT_ROUNDS", 8),
		EnableResultCache:  p.bool("ENABLE_RESULT_CACHE", true),
		CacheTTL:           p.seconds("CACHE_TTL_SECONDS", 300),
		RequestTimeout:     p.seconds("REQUEST_TIMEOUT", 30),
		MaxUploadBytes:     int64(p.int("MAX_UPLOAD_MB", 50)) << 20,
		DisplayOffsetHours: p.int("DISPLAY_UTC_OFFSET_HOURS", -5),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		AppVersion:         getEnv("APP_VERSION", "1.0.0"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DetectorBackend {
	case "remote", "ws", "onnx":
	default:
		errs = append(errs, fmt.Errorf("DETECTOR_BACKEND must be remote, ws or onnx, got %q", c.DetectorBackend))
	}
	if c.DefaultConfidence <= 0 || c.DefaultConfidence > 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_CONFIDENCE must be in (0, 1], got %v", c.DefaultConfidence))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_ROUNDS must be in [4, 31], got %d", c.BcryptCost))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser запоминает первую ошибку разбора, чтобы Load вернул её целиком
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) seconds(key string, fallback int) time.Duration {
	return time.Duration(p.int(key, fallback)) * time.Second
}
