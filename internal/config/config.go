package config

import "time"

type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Signing     SigningConfig  `mapstructure:"signing"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// PublicBaseURL is the externally reachable origin embedded in magic links.
	PublicBaseURL string `mapstructure:"public_base_url"`
	// CORSAllowedOrigins lists frontend origins; empty allows any origin.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MinConns     int           `mapstructure:"min_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// SigningConfig carries the workflow policy knobs: credential lifetimes,
// OTP attempt limits and the cleanup sweep interval.
type SigningConfig struct {
	MagicLinkTTL    time.Duration `mapstructure:"magic_link_ttl"`
	OTPTTL          time.Duration `mapstructure:"otp_ttl"`
	OTPCooldown     time.Duration `mapstructure:"otp_cooldown"`
	OTPMaxAttempts  int           `mapstructure:"otp_max_attempts"`
	OTPCodeLength   int           `mapstructure:"otp_code_length"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IsProduction reports whether the service runs with production policy,
// which among other things disables the OTP inspection endpoint.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
