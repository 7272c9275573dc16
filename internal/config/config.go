package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither the flag nor CONFIG_PATH is set.
const DefaultConfigPath = "config.yaml"

// AppConfig holds process-level options resolved from CLI flags.
type AppConfig struct {
	ConfigPath string
}

// Config is the full YAML configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Credits  CreditsConfig  `yaml:"credits"`
	Reset    ResetConfig    `yaml:"reset"`
	Mail     MailConfig     `yaml:"mail"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read-timeout"`
	WriteTimeout    time.Duration `yaml:"write-timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the optional balance cache. Empty Addr disables it.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	BalanceTTL time.Duration `yaml:"balance-ttl"`
}

// JWTConfig configures session cookies for users and admins.
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	Expiry          time.Duration `yaml:"expiry"`
	UserCookieName  string        `yaml:"user-cookie"`
	AdminCookieName string        `yaml:"admin-cookie"`
	CookieDomain    string        `yaml:"cookie-domain"`
	SecureCookies   bool          `yaml:"secure-cookies"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// TierConfig defines recurring grants for a paid tier.
type TierConfig struct {
	MonthlyCredits int64 `yaml:"monthly-credits"`
	YearlyStipend  int64 `yaml:"yearly-stipend"`
}

// CreditsConfig configures ledger policy.
type CreditsConfig struct {
	SignupBonus  int64                 `yaml:"signup-bonus"`
	StoreTimeout time.Duration         `yaml:"store-timeout"`
	Tiers        map[string]TierConfig `yaml:"tiers"`
}

// ResetConfig configures the periodic reset sweep.
type ResetConfig struct {
	SweepInterval time.Duration `yaml:"sweep-interval"`
	BatchSize     int           `yaml:"batch-size"`
}

// MailConfig configures login code delivery.
type MailConfig struct {
	From        string        `yaml:"from"`
	CodeTTL     time.Duration `yaml:"code-ttl"`
	MaxAttempts int           `yaml:"max-attempts"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// ResolveConfigPath returns the config path from the flag, CONFIG_PATH, or the default.
func ResolveConfigPath(flagPath string) string {
	if trimmed := strings.TrimSpace(flagPath); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("CONFIG_PATH")); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Default returns a configuration populated with defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{DSN: "data/studio.db"},
		Redis:    RedisConfig{BalanceTTL: 30 * time.Second},
		JWT: JWTConfig{
			Expiry:          7 * 24 * time.Hour,
			UserCookieName:  "studio_session",
			AdminCookieName: "studio_admin_session",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
		Credits: CreditsConfig{
			SignupBonus:  100,
			StoreTimeout: 5 * time.Second,
			Tiers: map[string]TierConfig{
				"pro":     {MonthlyCredits: 1000, YearlyStipend: 1000},
				"premium": {MonthlyCredits: 3000, YearlyStipend: 3000},
			},
		},
		Reset: ResetConfig{
			SweepInterval: time.Hour,
			BatchSize:     200,
		},
		Mail: MailConfig{
			From:        "no-reply@localhost",
			CodeTTL:     10 * time.Minute,
			MaxAttempts: 5,
			Cooldown:    time.Minute,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies env overrides.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, errRead := os.ReadFile(path)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return cfg, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	if len(data) > 0 {
		// yaml.v3 merges into non-nil maps; a tiers section replaces the defaults instead.
		defaultTiers := cfg.Credits.Tiers
		cfg.Credits.Tiers = nil
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
		if cfg.Credits.Tiers == nil {
			cfg.Credits.Tiers = defaultTiers
		}
	}
	applyEnvOverrides(&cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return cfg, errValidate
	}
	return cfg, nil
}

// LoadDatabaseDSN loads only the database DSN from the config file.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}

// Validate checks invariants the rest of the service relies on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.Credits.SignupBonus < 0 {
		return errors.New("config: credits.signup-bonus cannot be negative")
	}
	if c.Credits.StoreTimeout <= 0 {
		return errors.New("config: credits.store-timeout must be positive")
	}
	for _, name := range c.TierNames() {
		tier := c.Credits.Tiers[name]
		if tier.MonthlyCredits < 0 || tier.YearlyStipend < 0 {
			return fmt.Errorf("config: tier %s has negative credits", name)
		}
	}
	if _, ok := c.Credits.Tiers["free"]; ok {
		return errors.New("config: tier name free is reserved")
	}
	return nil
}

// TierNames returns configured paid tier names in sorted order.
func (c Config) TierNames() []string {
	names := make([]string, 0, len(c.Credits.Tiers))
	for name := range c.Credits.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}
