// Package config loads process settings from the environment and an optional
// config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	DBDriver       string
	DBDSN          string
	MigrationsPath string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration
	SessionTTL    time.Duration

	KafkaBrokers        []string
	NotificationTimeout time.Duration

	SMTP SMTPConfig

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var defaults = map[string]any{
	"http_port":            "8080",
	"grpc_port":            "50051",
	"db_driver":            "sqlite",
	"db_dsn":               "file:shop.db?_pragma=busy_timeout(5000)",
	"migrations_path":      "./internal/repository/migrations",
	"mongo_uri":            "mongodb://localhost:27017",
	"mongo_db_name":        "shop",
	"redis_addr":           "localhost:6379",
	"redis_password":       "",
	"cart_cache_ttl":       "24h",
	"session_ttl":          "168h",
	"kafka_brokers":        "",
	"notification_timeout": "5s",
	"smtp_host":            "localhost",
	"smtp_port":            25,
	"smtp_username":        "",
	"smtp_password":        "",
	"smtp_from":            "shop@localhost",
	"request_timeout":      "30s",
	"shutdown_timeout":     "10s",
	"max_request_body":     1 << 20, // 1MB
}

// Load reads settings from environment variables (HTTP_PORT, DB_DSN, ...),
// falling back to configFile when it is set and then to defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s failed: %w", configFile, err)
		}
	}

	cfg := &Config{
		HTTPPort:            v.GetString("http_port"),
		GRPCPort:            v.GetString("grpc_port"),
		DBDriver:            v.GetString("db_driver"),
		DBDSN:               v.GetString("db_dsn"),
		MigrationsPath:      v.GetString("migrations_path"),
		MongoURI:            v.GetString("mongo_uri"),
		MongoDBName:         v.GetString("mongo_db_name"),
		RedisAddr:           v.GetString("redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		CartCacheTTL:        v.GetDuration("cart_cache_ttl"),
		SessionTTL:          v.GetDuration("session_ttl"),
		KafkaBrokers:        splitList(v.GetString("kafka_brokers")),
		NotificationTimeout: v.GetDuration("notification_timeout"),
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			Username: v.GetString("smtp_username"),
			Password: v.GetString("smtp_password"),
			From:     v.GetString("smtp_from"),
		},
		RequestTimeout:     v.GetDuration("request_timeout"),
		ShutdownTimeout:    v.GetDuration("shutdown_timeout"),
		MaxRequestBodySize: v.GetInt64("max_request_body"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// splitList turns "a:9092, b:9092" into its non-empty elements.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
