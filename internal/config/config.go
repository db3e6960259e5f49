package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting of the server. Values come from the
// environment (optionally seeded from a .env file by main).
type Config struct {
	Port           string
	AppEnv         string
	DatabaseURL    string
	JWTSecret      string
	AllowedOrigins string

	// CountryCode is the dialing prefix searched for when canonicalizing
	// user-supplied identities, e.g. "964".
	CountryCode string
	// AdminPhone grants admin rights to the holder of this canonical phone
	// in addition to tokens carrying the admin role.
	AdminPhone string

	LogLevel  string
	LogPretty bool

	UploadDir     string
	MaxUploadSize int64
	StorageDriver string // local, s3
	S3            S3Config

	SMTP     SMTPConfig
	WhatsApp WhatsAppConfig

	RedisAddr     string
	RedisPassword string

	// DispatchDelay is the pause between recipients during notification fan-out.
	DispatchDelay time.Duration
}

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicURL       string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type WhatsAppConfig struct {
	BaseURL string
	Token   string
	Sender  string
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Port:           getEnv("PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		CountryCode: getEnv("COUNTRY_CODE", "964"),
		AdminPhone:  os.Getenv("ADMIN_PHONE"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getBool("LOG_PRETTY", false),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSize: getInt64("MAX_UPLOAD_SIZE", 10*1024*1024),
		StorageDriver: getEnv("STORAGE_DRIVER", "local"),
		S3: S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          os.Getenv("S3_BUCKET"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    getBool("S3_USE_PATH_STYLE", false),
			PublicURL:       os.Getenv("S3_PUBLIC_URL"),
		},

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     int(getInt64("SMTP_PORT", 587)),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			FromName: getEnv("SMTP_FROM_NAME", "Souq"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL: os.Getenv("WA_URL"),
			Token:   os.Getenv("WA_TOKEN"),
			Sender:  os.Getenv("WA_SENDER"),
		},

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DispatchDelay: getDuration("NOTIFY_DISPATCH_DELAY", 200*time.Millisecond),
	}
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
