package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	LogLevel       string
	LogDevelopment bool

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartKeyPrefix string
	CartCacheTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	OutboxTick   time.Duration

	// PaymentApprovalRate is the share of simulated charges that succeed.
	PaymentApprovalRate float64

	SeedData bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("grpc_port", "50060")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("max_request_body_size", 1<<20) // 1MB
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
	v.SetDefault("jwt_secret", "change-me-in-production")
	v.SetDefault("jwt_ttl", 2*time.Hour)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cart_key_prefix", "cart:")
	v.SetDefault("cart_cache_ttl", 15*time.Minute)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "shop-events")
	v.SetDefault("outbox_tick", time.Second)
	v.SetDefault("payment_approval_rate", 1.0)
	v.SetDefault("seed_data", true)
}

// Load reads the configuration from environment variables, e.g. PORT or REDIS_ADDR.
func Load() *Config {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	return &Config{
		HTTPPort:            v.GetString("port"),
		GRPCPort:            v.GetString("grpc_port"),
		RequestTimeout:      v.GetDuration("request_timeout"),
		ShutdownTimeout:     v.GetDuration("shutdown_timeout"),
		MaxRequestBodySize:  v.GetInt64("max_request_body_size"),
		LogLevel:            v.GetString("log_level"),
		LogDevelopment:      v.GetBool("log_development"),
		JWTSecret:           v.GetString("jwt_secret"),
		JWTTTL:              v.GetDuration("jwt_ttl"),
		RedisAddr:           v.GetString("redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		CartKeyPrefix:       v.GetString("cart_key_prefix"),
		CartCacheTTL:        v.GetDuration("cart_cache_ttl"),
		KafkaBrokers:        splitList(v.GetString("kafka_brokers")),
		KafkaTopic:          v.GetString("kafka_topic"),
		OutboxTick:          v.GetDuration("outbox_tick"),
		PaymentApprovalRate: v.GetFloat64("payment_approval_rate"),
		SeedData:            v.GetBool("seed_data"),
	}
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
