package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"fulfillment/internal/adapters/out/ups"
	"fulfillment/internal/pkg/errs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultCallbackPort is the carrier callback port used in per-command mode when
// CALLBACK_PORT is not set.
const DefaultCallbackPort = "9999"

type Config struct {
	WorldHost string
	WorldPort string
	WorldID   *int64
	SimSpeed  uint32

	UPSHost      string
	UPSPort      string
	UPSMode      ups.Mode
	CallbackPort string

	HTTPPort string

	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSslMode   string
	AutoMigrate bool
	CatalogPath string

	ResendInterval    time.Duration
	ResendMaxAttempts int
	ReconnectDelay    time.Duration

	PoolMin   int
	PoolMax   int
	PoolQueue int

	StatusQuerySchedule string
	PendingThreshold    int

	LogLevel  string
	LogFormat string
}

func (c Config) WorldAddr() string { return net.JoinHostPort(c.WorldHost, c.WorldPort) }

func (c Config) UPSAddr() string { return net.JoinHostPort(c.UPSHost, c.UPSPort) }

// UsesDatabase reports whether the PostgreSQL store is configured; otherwise the
// YAML catalog is used.
func (c Config) UsesDatabase() bool { return c.DBHost != "" }

// DSN returns the PostgreSQL connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("WORLD_HOST", "localhost")
	v.SetDefault("WORLD_PORT", "23456")
	v.SetDefault("WORLD_ID", "")
	v.SetDefault("SIM_SPEED", 500)
	v.SetDefault("UPS_HOST", "localhost")
	v.SetDefault("UPS_PORT", "34567")
	v.SetDefault("UPS_MODE", string(ups.ModePersistent))
	v.SetDefault("CALLBACK_PORT", "")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "amazon")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("CATALOG_PATH", "catalog.yaml")
	v.SetDefault("RESEND_INTERVAL", "3s")
	v.SetDefault("RESEND_MAX_ATTEMPTS", 0)
	v.SetDefault("RECONNECT_DELAY", "1s")
	v.SetDefault("POOL_MIN", 50)
	v.SetDefault("POOL_MAX", 80)
	v.SetDefault("POOL_QUEUE", 30)
	v.SetDefault("STATUS_QUERY_SCHEDULE", "@every 30s")
	v.SetDefault("PENDING_THRESHOLD", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// LoadConfig reads the configuration from the environment. envFiles are loaded
// into the environment first when they exist; variables already set win.
func LoadConfig(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		WorldHost:           v.GetString("WORLD_HOST"),
		WorldPort:           v.GetString("WORLD_PORT"),
		UPSHost:             v.GetString("UPS_HOST"),
		UPSPort:             v.GetString("UPS_PORT"),
		CallbackPort:        v.GetString("CALLBACK_PORT"),
		HTTPPort:            v.GetString("HTTP_PORT"),
		DBHost:              v.GetString("DB_HOST"),
		DBPort:              v.GetString("DB_PORT"),
		DBUser:              v.GetString("DB_USER"),
		DBPassword:          v.GetString("DB_PASSWORD"),
		DBName:              v.GetString("DB_NAME"),
		DBSslMode:           v.GetString("DB_SSLMODE"),
		AutoMigrate:         v.GetBool("DB_AUTO_MIGRATE"),
		CatalogPath:         v.GetString("CATALOG_PATH"),
		ResendInterval:      v.GetDuration("RESEND_INTERVAL"),
		ResendMaxAttempts:   v.GetInt("RESEND_MAX_ATTEMPTS"),
		ReconnectDelay:      v.GetDuration("RECONNECT_DELAY"),
		PoolMin:             v.GetInt("POOL_MIN"),
		PoolMax:             v.GetInt("POOL_MAX"),
		PoolQueue:           v.GetInt("POOL_QUEUE"),
		StatusQuerySchedule: v.GetString("STATUS_QUERY_SCHEDULE"),
		PendingThreshold:    v.GetInt("PENDING_THRESHOLD"),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:           strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	var problems []error

	if raw := strings.TrimSpace(v.GetString("WORLD_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause("WORLD_ID", err))
		} else {
			cfg.WorldID = &id
		}
	}

	speed := v.GetInt64("SIM_SPEED")
	if speed < 0 || speed > int64(^uint32(0)) {
		problems = append(problems, errs.NewValueIsOutOfRangeError("SIM_SPEED", speed, 0, ^uint32(0)))
	} else {
		cfg.SimSpeed = uint32(speed)
	}

	mode, ok := ups.ParseMode(v.GetString("UPS_MODE"))
	if !ok {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("UPS_MODE",
			fmt.Errorf("unknown mode %q", v.GetString("UPS_MODE"))))
	}
	cfg.UPSMode = mode
	if cfg.UPSMode == ups.ModePerCommand && cfg.CallbackPort == "" {
		cfg.CallbackPort = DefaultCallbackPort
	}

	if cfg.ResendInterval <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("RESEND_INTERVAL",
			fmt.Errorf("must be positive, got %s", cfg.ResendInterval)))
	}
	if cfg.ResendMaxAttempts < 0 {
		problems = append(problems, errs.NewValueIsOutOfRangeError("RESEND_MAX_ATTEMPTS", cfg.ResendMaxAttempts, 0, "unlimited"))
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("LOG_FORMAT",
			fmt.Errorf("want text or json, got %q", cfg.LogFormat)))
	}

	if err := errors.Join(problems...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
