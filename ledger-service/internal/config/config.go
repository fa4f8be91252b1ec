package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/eaglebank/ledger/shared/money"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Log struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type Redis struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	RequireForTransfer bool `envconfig:"REQUIRE_FOR_TRANSFER" default:"false"`
	UniformResponses   bool `envconfig:"UNIFORM_RESPONSES" default:"false"`
}

type Config struct {
	Env                   string          `envconfig:"APP_ENV" default:"development"`
	Port                  string          `envconfig:"PORT" default:"8080"`
	DefaultInitialBalance decimal.Decimal `envconfig:"DEFAULT_INITIAL_BALANCE" default:"1000.00"`
	PinHashing            string          `envconfig:"PIN_HASHING" default:"bcrypt"`
	BcryptCost            int             `envconfig:"BCRYPT_COST" default:"10"`
	ShutdownTimeout       time.Duration   `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	Log   Log   `envconfig:"LOG"`
	Redis Redis `envconfig:"REDIS"`
	Jwt   Jwt   `envconfig:"JWT"`
	Auth  Auth  `envconfig:"AUTH"`
}

// Load reads the optional env files (".env" when none are given) and then the
// process environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Debug("Environment file not found", "path", path)
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.PinHashing {
	case "bcrypt", "plain":
	default:
		return fmt.Errorf("PIN_HASHING must be bcrypt or plain, got %q", c.PinHashing)
	}
	if _, err := c.DefaultBalance(); err != nil {
		return fmt.Errorf("DEFAULT_INITIAL_BALANCE: %w", err)
	}
	if c.Auth.RequireForTransfer && c.Jwt.Secret == "" {
		return errors.New("AUTH_REQUIRE_FOR_TRANSFER needs JWT_SECRET")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

func (c *Config) DefaultBalance() (money.Amount, error) {
	return money.FromDecimal(c.DefaultInitialBalance)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *Config) TokensEnabled() bool {
	return c.Jwt.Secret != ""
}

// LogValue keeps secrets out of the logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.String("port", c.Port),
		slog.String("default_initial_balance", c.DefaultInitialBalance.StringFixed(money.Scale)),
		slog.String("pin_hashing", c.PinHashing),
		slog.String("log_level", c.Log.Level),
		slog.String("redis_addr", c.Redis.Addr),
		slog.String("redis_password", maskValue(c.Redis.Password)),
		slog.String("jwt_secret", maskValue(c.Jwt.Secret)),
		slog.Duration("jwt_expiry", c.Jwt.Expiry),
		slog.Bool("auth_require_for_transfer", c.Auth.RequireForTransfer),
		slog.Bool("auth_uniform_responses", c.Auth.UniformResponses),
		slog.Duration("shutdown_timeout", c.ShutdownTimeout),
	)
}

func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger. Invalid levels fall back to info.
func NewLogger(l Log, w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 6 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}
