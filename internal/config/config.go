package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string `mapstructure:"database_url" validate:"required"`
	DBMaxOpenConns int    `mapstructure:"db_max_open_conns" validate:"gt=0"`

	// Auth
	JWTSecret string `mapstructure:"jwt_secret" validate:"required"`

	// Server
	ServerPort        string `mapstructure:"server_port" validate:"required,numeric"`
	CORSAllowedOrigin string `mapstructure:"cors_allowed_origin"`

	// Logging
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int `mapstructure:"rate_limit_general" validate:"gt=0"`

	// Stale session worker
	StaleSessionAfter  time.Duration `mapstructure:"stale_session_after" validate:"gt=0"`
	StaleCheckInterval time.Duration `mapstructure:"stale_check_interval" validate:"gt=0"`
}

// 必須キーは既定値を持たないためBindEnvで環境変数と結び付ける。
var requiredKeys = []string{"database_url", "jwt_secret"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("server_port", "8080")
	v.SetDefault("cors_allowed_origin", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit_general", 120)
	v.SetDefault("stale_session_after", 12*time.Hour)
	v.SetDefault("stale_check_interval", 15*time.Minute)
}

// Load は環境変数からConfigを読み込む。
// envFileが指定された場合は先にdotenvファイルを読み込む。既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", envName(key), err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate は未設定の必須項目をまとめて報告し、それ以外の不正値は最初の1件を報告する。
func validate(cfg *Config) error {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		return envName(f.Tag.Get("mapstructure"))
	})

	err := vd.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var missing []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	fe := verrs[0]
	return fmt.Errorf("invalid value for %s: %v", fe.Field(), fe.Value())
}

func envName(key string) string {
	return strings.ToUpper(key)
}
