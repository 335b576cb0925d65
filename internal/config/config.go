package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                    string
	Port                   string
	SessionSecret          string
	DatabaseURL            string // empty runs the in-memory store seeded from InventoryFile
	RedisURL               string
	FrontendURLEndsWith    string
	DevPassword            string
	AllowCrossSiteDev      bool
	CookieDomain           string
	HealthAdminKey         string
	LogLevel               string
	InventoryFile          string
	CapacityCacheTTL       time.Duration
	PlanningHorizon        int
	BayMaintenanceDays     int
	MachineMaintenanceDays int
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MemoryMode is true when no database is configured.
func (c *Config) MemoryMode() bool {
	return c.DatabaseURL == ""
}

// Load loads config from env and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CAPACITY_CACHE_TTL", "5m")
	v.SetDefault("PLANNING_HORIZON", 6)
	v.SetDefault("BAY_MAINTENANCE_DAYS", 180)
	v.SetDefault("MACHINE_MAINTENANCE_DAYS", 90)

	cfg := &Config{
		Env:                    v.GetString("APP_ENV"),
		Port:                   v.GetString("PORT"),
		SessionSecret:          v.GetString("SESSION_SECRET"),
		DatabaseURL:            strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisURL:               v.GetString("REDIS_URL"),
		FrontendURLEndsWith:    v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:            v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:      strings.EqualFold(v.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		CookieDomain:           v.GetString("COOKIE_DOMAIN"),
		HealthAdminKey:         v.GetString("HEALTH_ADMIN_KEY"),
		LogLevel:               strings.ToLower(v.GetString("LOG_LEVEL")),
		InventoryFile:          v.GetString("INVENTORY_FILE"),
		CapacityCacheTTL:       v.GetDuration("CAPACITY_CACHE_TTL"),
		PlanningHorizon:        v.GetInt("PLANNING_HORIZON"),
		BayMaintenanceDays:     v.GetInt("BAY_MAINTENANCE_DAYS"),
		MachineMaintenanceDays: v.GetInt("MACHINE_MAINTENANCE_DAYS"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PlanningHorizon < 1 || c.PlanningHorizon > 104 {
		return fmt.Errorf("PLANNING_HORIZON must be between 1 and 104, got %d", c.PlanningHorizon)
	}
	if c.BayMaintenanceDays < 1 {
		return fmt.Errorf("BAY_MAINTENANCE_DAYS must be positive, got %d", c.BayMaintenanceDays)
	}
	if c.MachineMaintenanceDays < 1 {
		return fmt.Errorf("MACHINE_MAINTENANCE_DAYS must be positive, got %d", c.MachineMaintenanceDays)
	}
	if c.CapacityCacheTTL < 0 {
		return fmt.Errorf("CAPACITY_CACHE_TTL cannot be negative")
	}
	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	return nil
}
