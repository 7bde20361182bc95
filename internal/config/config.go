// Package config loads lotctl settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beesaferoot/lotassign/domain"
	"github.com/beesaferoot/lotassign/schedule"
	"github.com/beesaferoot/lotassign/validate"
)

// DatabaseConfig selects and tunes the database connection.
type DatabaseConfig struct {
	Driver     string
	URL        string
	SQLitePath string
	LogLevel   string
}

type Config struct {
	Database DatabaseConfig

	Currency    domain.Currency
	MaxHoldDays int
	ClockSkew   time.Duration

	AdvanceMonths     int
	BillingDayOfMonth int
	GracePeriodDays   int
	LatePenaltyRate   decimal.Decimal

	HTTPAddr       string
	ExpirySchedule string
	// ActorRoles seeds role assignments as "actor:role,actor:role".
	ActorRoles string
}

// Load reads the configuration. Unset keys take their defaults; malformed
// values are an error naming the key.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			URL:        os.Getenv("DATABASE_URL"),
			SQLitePath: getEnv("SQLITE_PATH", "lotassign.db"),
			LogLevel:   strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),
		},
		Currency: domain.Currency{
			Code:       strings.ToUpper(getEnv("CURRENCY", domain.DefaultCurrency.Code)),
			MinorUnits: int32(p.intVar("CURRENCY_MINOR_UNITS", int(domain.DefaultCurrency.MinorUnits), 0, 8)),
		},
		MaxHoldDays:       p.intVar("MAX_HOLD_DAYS", 30, 1, 365),
		ClockSkew:         p.durationVar("CLOCK_SKEW", 15*time.Minute),
		AdvanceMonths:     p.intVar("DEFAULT_ADVANCE_MONTHS", 1, 0, 24),
		BillingDayOfMonth: p.intVar("DEFAULT_BILLING_DAY", 5, 1, 28),
		GracePeriodDays:   p.intVar("DEFAULT_GRACE_DAYS", 0, 0, 365),
		LatePenaltyRate:   p.decimalVar("DEFAULT_LATE_PENALTY_RATE", decimal.Zero),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		ExpirySchedule:    getEnv("EXPIRY_SCHEDULE", "0 */15 * * * *"),
		ActorRoles:        os.Getenv("ACTOR_ROLES"),
	}

	if code, msg := validate.CheckRate(cfg.LatePenaltyRate); code != "" {
		p.fail("DEFAULT_LATE_PENALTY_RATE", msg)
	}

	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.URL == "" {
			p.fail("DATABASE_URL", "required when DB_DRIVER=postgres")
		}
	default:
		p.fail("DB_DRIVER", fmt.Sprintf("unknown driver %q", cfg.Database.Driver))
	}
	switch cfg.Database.LogLevel {
	case "silent", "error", "warn", "info":
	default:
		p.fail("DB_LOG_LEVEL", fmt.Sprintf("unknown level %q", cfg.Database.LogLevel))
	}

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// Validation returns the contract validator settings.
func (c *Config) Validation() validate.Config {
	return validate.Config{
		Currency:    c.Currency,
		MaxHoldDays: c.MaxHoldDays,
		ClockSkew:   c.ClockSkew,
	}
}

// Schedule returns the schedule calculator settings.
func (c *Config) Schedule() schedule.Config {
	return schedule.Config{
		Currency:          c.Currency,
		AdvanceMonths:     c.AdvanceMonths,
		BillingDayOfMonth: c.BillingDayOfMonth,
		GracePeriodDays:   c.GracePeriodDays,
		LatePenaltyRate:   c.LatePenaltyRate,
	}
}

// parser keeps the first error so Load can read every key in one pass.
type parser struct {
	err error
}

func (p *parser) fail(key, msg string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %s", key, msg)
	}
}

func (p *parser) intVar(key string, def, lo, hi int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, err.Error())
		return def
	}
	if v < lo || v > hi {
		p.fail(key, fmt.Sprintf("%d not in [%d, %d]", v, lo, hi))
		return def
	}
	return v
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		p.fail(key, fmt.Sprintf("%q is not a non-negative duration", raw))
		return def
	}
	return v
}

func (p *parser) decimalVar(key string, def decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		p.fail(key, fmt.Sprintf("%q is not a non-negative decimal", raw))
		return def
	}
	return v
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
