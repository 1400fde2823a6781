package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"edencore/marketrun/internal/i18n"
)

type Config struct {
	APIURL                       string
	TelegramInitData             string
	DevTelegramID                string
	Language                     i18n.Language
	MarketLocation               string
	RequestTimeoutSeconds        int
	RedisAddr                    string
	RedisPassword                string
	RedisDB                      int
	ConsolidationCacheTTLSeconds int

	Port             string
	AllowedOrigin    string
	StubFixturePath  string
	StubPurchaserIDs []string
	TelegramBotToken string
	AllowDevHeader   bool
}

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	timeout, err := strconv.Atoi(getEnv("EDEN_REQUEST_TIMEOUT_SECONDS", "15"))
	if err != nil || timeout < 1 {
		timeout = 15
	}
	allowDev, err := strconv.ParseBool(getEnv("STUB_ALLOW_DEV_HEADER", "true"))
	if err != nil {
		allowDev = true
	}
	cacheTTL, err := strconv.Atoi(getEnv("CONSOLIDATION_CACHE_TTL_SECONDS", "30"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 30
	}

	return Config{
		APIURL:                       strings.TrimRight(getEnv("EDEN_API_URL", "http://127.0.0.1:8000/api"), "/"),
		TelegramInitData:             strings.TrimSpace(os.Getenv("EDEN_TELEGRAM_INIT_DATA")),
		DevTelegramID:                strings.TrimSpace(os.Getenv("EDEN_DEV_TELEGRAM_ID")),
		Language:                     i18n.ParseLanguage(getEnv("EDEN_LANGUAGE", "en")),
		MarketLocation:               getEnv("EDEN_MARKET_LOCATION", "Chorsu"),
		RequestTimeoutSeconds:        timeout,
		RedisAddr:                    os.Getenv("REDIS_ADDR"),
		RedisPassword:                os.Getenv("REDIS_PASSWORD"),
		RedisDB:                      redisDB,
		ConsolidationCacheTTLSeconds: cacheTTL,
		Port:                         getEnv("PORT", "8000"),
		AllowedOrigin:                getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:5173"),
		StubFixturePath:              os.Getenv("STUB_FIXTURE_PATH"),
		StubPurchaserIDs:             splitList(os.Getenv("STUB_PURCHASER_IDS")),
		TelegramBotToken:             strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		AllowDevHeader:               allowDev,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) ConsolidationCacheTTL() time.Duration {
	return time.Duration(c.ConsolidationCacheTTLSeconds) * time.Second
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
