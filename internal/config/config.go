package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Values are read by
// viper from an optional config file, with environment variables taking
// precedence (HTTP_PORT overrides HTTP.PORT and so on).
type Config struct {
	App struct {
		Name string `mapstructure:"NAME"`
		Env  string `mapstructure:"ENV"`
	} `mapstructure:"APP"`

	Log struct {
		Level     string `mapstructure:"LEVEL"`
		Format    string `mapstructure:"FORMAT"`
		Component string `mapstructure:"COMPONENT"`
		Source    bool   `mapstructure:"SOURCE"`
	} `mapstructure:"LOG"`

	DB struct {
		DSN      string `mapstructure:"DSN"`
		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		User     string `mapstructure:"USER"`
		Password string `mapstructure:"PASSWORD"`
		Name     string `mapstructure:"NAME"`
	} `mapstructure:"DB"`

	Redis struct {
		Addr     string `mapstructure:"ADDR"`
		Password string `mapstructure:"PASSWORD"`
		DB       int    `mapstructure:"DB"`
	} `mapstructure:"REDIS"`

	HTTP struct {
		Host           string   `mapstructure:"HOST"`
		Port           string   `mapstructure:"PORT"`
		AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
	} `mapstructure:"HTTP"`
}

// New loads configuration from config.yaml (if present) and the environment.
func New() *Config {
	v := viper.New()

	v.SetDefault("APP.NAME", "heelo-server")
	v.SetDefault("APP.ENV", "development")

	v.SetDefault("LOG.LEVEL", "info")
	v.SetDefault("LOG.FORMAT", "text")
	v.SetDefault("LOG.COMPONENT", "http_server")
	v.SetDefault("LOG.SOURCE", false)

	v.SetDefault("DB.DSN", "")
	v.SetDefault("DB.HOST", "localhost")
	v.SetDefault("DB.PORT", "3306")
	v.SetDefault("DB.USER", "root")
	v.SetDefault("DB.PASSWORD", "root")
	v.SetDefault("DB.NAME", "heelo")

	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("HTTP.HOST", "0.0.0.0")
	v.SetDefault("HTTP.PORT", "8080")
	v.SetDefault("HTTP.ALLOWED_ORIGINS", []string{"http://localhost:5173"})

	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// A present but broken config file should not be silently ignored.
			panic(fmt.Sprintf("failed to read config file: %v", err))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal config: %v", err))
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	return cfg
}
