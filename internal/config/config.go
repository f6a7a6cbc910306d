// Package config は環境変数（と任意の設定ファイル）からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral  int
	RateLimitMutation int

	// Dish
	DishPageSize         int
	DishEnforceOwnership bool
	DishRejectGuestList  bool

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

var requiredKeys = []string{
	"DATABASE_URL",
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_REDIRECT_URL",
	"SESSION_SECRET",
	"BASE_URL",
}

var defaults = map[string]any{
	"SESSION_MAX_AGE":          86400,
	"SESSION_CLEANUP_INTERVAL": time.Hour,
	"RATE_LIMIT_GENERAL":       120,
	"RATE_LIMIT_MUTATION":      30,
	"DISH_PAGE_SIZE":           3,
	"DISH_ENFORCE_OWNERSHIP":   true,
	"DISH_REJECT_GUEST_LIST":   false,
	"LOG_LEVEL":                "info",
	"SERVER_PORT":              "8080",
	"COOKIE_DOMAIN":            "",
	"CORS_ALLOWED_ORIGIN":      "http://localhost:3000",
}

// Load は環境変数からConfigを読み込む。
// CONFIG_FILE が設定されている場合はそのファイルも読み込み、環境変数を優先する。
// 必須項目が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if p := os.Getenv("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", p, err)
		}
	}

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg := &Config{
		DatabaseURL:            v.GetString("DATABASE_URL"),
		GoogleClientID:         v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:     v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:      v.GetString("GOOGLE_REDIRECT_URL"),
		SessionSecret:          v.GetString("SESSION_SECRET"),
		BaseURL:                v.GetString("BASE_URL"),
		SessionMaxAge:          positiveInt(v, "SESSION_MAX_AGE"),
		SessionCleanupInterval: positiveDuration(v, "SESSION_CLEANUP_INTERVAL"),
		RateLimitGeneral:       positiveInt(v, "RATE_LIMIT_GENERAL"),
		RateLimitMutation:      positiveInt(v, "RATE_LIMIT_MUTATION"),
		DishPageSize:           positiveInt(v, "DISH_PAGE_SIZE"),
		DishEnforceOwnership:   v.GetBool("DISH_ENFORCE_OWNERSHIP"),
		DishRejectGuestList:    v.GetBool("DISH_REJECT_GUEST_LIST"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		ServerPort:             v.GetString("SERVER_PORT"),
		CookieDomain:           v.GetString("COOKIE_DOMAIN"),
		CORSAllowedOrigin:      v.GetString("CORS_ALLOWED_ORIGIN"),
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// positiveInt は値が解釈できないか0以下の場合にデフォルト値を返す。
func positiveInt(v *viper.Viper, key string) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return defaults[key].(int)
}

func positiveDuration(v *viper.Viper, key string) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return defaults[key].(time.Duration)
}
