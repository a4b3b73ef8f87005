package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Memo       MemoConfig       `mapstructure:"memo"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Withdrawal WithdrawalConfig `mapstructure:"withdrawal"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type MemoConfig struct {
	// Secret is the process secret for per-memo key derivation.
	Secret string `mapstructure:"secret"`
	// TTL bounds the replay window for deposit memos.
	TTL time.Duration `mapstructure:"ttl"`
}

type WalletConfig struct {
	// MnemonicSecret protects generated key material at rest.
	MnemonicSecret string `mapstructure:"mnemonic_secret"`
}

type WithdrawalConfig struct {
	MinAmount     string        `mapstructure:"min_amount"`
	MaxAmount     string        `mapstructure:"max_amount"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
}

type ComplianceConfig struct {
	// Per-transaction ceilings keyed by verification level.
	LimitNone     string `mapstructure:"limit_none"`
	LimitBasic    string `mapstructure:"limit_basic"`
	LimitEnhanced string `mapstructure:"limit_enhanced"`
	LimitFull     string `mapstructure:"limit_full"`
	// AML heuristics.
	AMLDailyTxThreshold int    `mapstructure:"aml_daily_tx_threshold"`
	AMLLargeAmount      string `mapstructure:"aml_large_amount"`
}

type JobsConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

type ChainConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	BotEndpoint string        `mapstructure:"bot_endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: GMW_ (Gift Market Wallet).
// Nested keys use underscore: GMW_DATABASE_HOST, GMW_MEMO_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "gift_market")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "gift-market-wallet")
	v.SetDefault("memo.secret", "")
	v.SetDefault("memo.ttl", "1h")
	v.SetDefault("wallet.mnemonic_secret", "")
	v.SetDefault("withdrawal.min_amount", "0.1")
	v.SetDefault("withdrawal.max_amount", "10000")
	v.SetDefault("withdrawal.submit_timeout", "30s")
	v.SetDefault("compliance.limit_none", "100")
	v.SetDefault("compliance.limit_basic", "1000")
	v.SetDefault("compliance.limit_enhanced", "10000")
	v.SetDefault("compliance.limit_full", "100000")
	v.SetDefault("compliance.aml_daily_tx_threshold", 20)
	v.SetDefault("compliance.aml_large_amount", "5000")
	v.SetDefault("jobs.poll_interval", "2s")
	v.SetDefault("jobs.max_concurrent", 5)
	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("jobs.retry_base_delay", "30s")
	v.SetDefault("chain.base_url", "https://toncenter.com/api/v2")
	v.SetDefault("chain.api_key", "")
	v.SetDefault("chain.timeout", "15s")
	v.SetDefault("notify.bot_endpoint", "")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: GMW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("GMW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
