package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var DB *gorm.DB

// PayHereCredentials is one credential set (live or sandbox) of the payment gateway
type PayHereCredentials struct {
	MerchantID     string
	MerchantSecret string
	AppID          string
	AppSecret      string
	BaseURL        string
}

// Config holds all configuration for the application
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	Port       string
	Env        string
	LogDir     string

	AllowedOrigins []string

	PayHereLive      PayHereCredentials
	PayHereSandbox   PayHereCredentials
	DefaultMode      string
	Currency         string
	TokenCacheTTL    time.Duration
	GatewayTimeout   time.Duration
	EnrollmentPeriod time.Duration

	CMOCommissionRate     decimal.Decimal
	ProtectedRate         decimal.Decimal
	DefaultHighRate       decimal.Decimal
	DefaultLowRate        decimal.Decimal
	DefaultHighThreshold  int64
	TierSeedFile          string
	RecalculateBatchSize  int
	TierEvaluationTimeout time.Duration

	TelegramBotToken string
	TelegramChatID   int64

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadConfig loads configuration from the .env file (if present) and the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	cmoRate, err := getEnvDecimal("CMO_COMMISSION_RATE", "0.05")
	if err != nil {
		return nil, err
	}
	protectedRate, err := getEnvDecimal("COMMISSION_PROTECTED_RATE", "0.12")
	if err != nil {
		return nil, err
	}
	highRate, err := getEnvDecimal("COMMISSION_DEFAULT_HIGH_RATE", "0.12")
	if err != nil {
		return nil, err
	}
	lowRate, err := getEnvDecimal("COMMISSION_DEFAULT_LOW_RATE", "0.08")
	if err != nil {
		return nil, err
	}

	config := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "studyhub"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		LogDir:     getEnv("LOG_DIR", "logs"),

		PayHereLive: PayHereCredentials{
			MerchantID:     os.Getenv("PAYHERE_MERCHANT_ID"),
			MerchantSecret: os.Getenv("PAYHERE_MERCHANT_SECRET"),
			AppID:          os.Getenv("PAYHERE_APP_ID"),
			AppSecret:      os.Getenv("PAYHERE_APP_SECRET"),
			BaseURL:        getEnv("PAYHERE_BASE_URL", "https://www.payhere.lk"),
		},
		PayHereSandbox: PayHereCredentials{
			MerchantID:     os.Getenv("PAYHERE_SANDBOX_MERCHANT_ID"),
			MerchantSecret: os.Getenv("PAYHERE_SANDBOX_MERCHANT_SECRET"),
			AppID:          os.Getenv("PAYHERE_SANDBOX_APP_ID"),
			AppSecret:      os.Getenv("PAYHERE_SANDBOX_APP_SECRET"),
			BaseURL:        getEnv("PAYHERE_SANDBOX_BASE_URL", "https://sandbox.payhere.lk"),
		},
		DefaultMode:      getEnv("PAYMENT_MODE", "sandbox"),
		Currency:         getEnv("PAYMENT_CURRENCY", "LKR"),
		TokenCacheTTL:    getEnvDuration("PAYHERE_TOKEN_CACHE_TTL", 5*time.Minute),
		GatewayTimeout:   getEnvDuration("PAYHERE_TIMEOUT", 15*time.Second),
		EnrollmentPeriod: getEnvDuration("ENROLLMENT_PERIOD", 365*24*time.Hour),

		CMOCommissionRate:     cmoRate,
		ProtectedRate:         protectedRate,
		DefaultHighRate:       highRate,
		DefaultLowRate:        lowRate,
		DefaultHighThreshold:  int64(getEnvInt("COMMISSION_DEFAULT_HIGH_THRESHOLD", 100)),
		TierSeedFile:          getEnv("COMMISSION_TIERS_FILE", "config/commission_tiers.yaml"),
		RecalculateBatchSize:  getEnvInt("RECALCULATE_BATCH_SIZE", 500),
		TierEvaluationTimeout: getEnvDuration("TIER_EVALUATION_TIMEOUT", 10*time.Minute),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: getEnvList("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "studyhub.commission"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "*"),
	}

	return config, nil
}

// DSN builds the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key, defaultVal string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultVal), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvDecimal(key, defaultVal string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultVal))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
