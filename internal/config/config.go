package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

// ConfigPathEnvVar names the environment variable holding an explicit config file path.
const ConfigPathEnvVar = "MEALPLANNER_CONFIG"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{"config.yaml", "/etc/meal-planner/config.yaml"}

// Config holds the configuration for the application.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Ghost    GhostConfig    `koanf:"ghost"`
	Telegram TelegramConfig `koanf:"telegram"`
	Redis    RedisConfig    `koanf:"redis"`
	Planner  PlannerConfig  `koanf:"planner"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

type GhostConfig struct {
	URL        string `koanf:"url" validate:"omitempty,url"`
	ContentKey string `koanf:"content_key"`
	AdminKey   string `koanf:"admin_key"`
	// Tag limits ingestion to posts carrying this tag slug.
	Tag string `koanf:"tag"`
}

type TelegramConfig struct {
	BotToken    string `koanf:"bot_token"`
	WebhookURL  string `koanf:"webhook_url" validate:"omitempty,url"`
	AllowUserID int64  `koanf:"allow_user_id"`
	ListenAddr  string `koanf:"listen_addr" validate:"required"`
}

// RedisConfig enables the Redis-backed per-user lock. When disabled an
// in-process lock is used, which only serialises a single instance.
type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr" validate:"required_if=Enabled true"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db" validate:"min=0"`
	LockTTL  time.Duration `koanf:"lock_ttl" validate:"min=0"`
}

type PlannerConfig struct {
	Weights      planner.Weights `koanf:"weights"`
	MealTypes    []string        `koanf:"meal_types" validate:"min=1,unique,dive,oneof=breakfast lunch dinner appetizer main dessert"`
	MinFavorites int             `koanf:"min_favorites" validate:"min=1"`
	// Timeout bounds a single generation run.
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`
	// WeeknightMinutes is the default weeknight budget. Zero means unconstrained.
	WeeknightMinutes int      `koanf:"weeknight_minutes" validate:"min=0,max=1440"`
	Restrictions     []string `koanf:"restrictions"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "data/db/planner.db"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Telegram: TelegramConfig{ListenAddr: ":8080"},
		Redis:    RedisConfig{Addr: "localhost:6379", LockTTL: 30 * time.Second},
		Planner: PlannerConfig{
			Weights:      planner.DefaultWeights(),
			MealTypes:    []string{"breakfast", "lunch", "dinner"},
			MinFavorites: 1,
			Timeout:      10 * time.Second,
		},
	}
}

// NewFromEnv loads defaults, then the optional YAML config file, then
// environment variables, and validates the result.
func NewFromEnv() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and the planner settings.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}
	if err := c.Planner.Weights.Validate(); err != nil {
		return err
	}
	if _, err := recipe.ParseRestrictions(c.Planner.Restrictions); err != nil {
		return err
	}
	return nil
}

// RequireGhost reports an error when Ghost ingestion is not configured.
func (c *Config) RequireGhost() error {
	if c.Ghost.URL == "" {
		return fmt.Errorf("GHOST_API_URL environment variable not set")
	}
	if c.Ghost.ContentKey == "" && c.Ghost.AdminKey == "" {
		return fmt.Errorf("GHOST_CONTENT_API_KEY environment variable not set")
	}
	return nil
}

// RequireTelegram reports an error when the bot cannot be started.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	return nil
}

// PlannerSettings converts the planner section into the planner's configuration.
func (c *Config) PlannerSettings() planner.Config {
	mealTypes := make([]planner.MealType, 0, len(c.Planner.MealTypes))
	for _, mt := range c.Planner.MealTypes {
		mealTypes = append(mealTypes, planner.MealType(mt))
	}
	return planner.Config{
		Weights:      c.Planner.Weights,
		MealTypes:    mealTypes,
		MinFavorites: c.Planner.MinFavorites,
	}
}

// DefaultPreferences are applied to users who never saved their own.
func (c *Config) DefaultPreferences() planner.Preferences {
	var p planner.Preferences
	if c.Planner.WeeknightMinutes > 0 {
		p.WeeknightMinutes = recipe.Minutes(c.Planner.WeeknightMinutes)
	}
	// Validate already rejected unparseable restrictions.
	p.Restrictions, _ = recipe.ParseRestrictions(c.Planner.Restrictions)
	return p
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"planner.meal_types",
	"planner.restrictions",
}

// processSliceFields splits comma-separated environment values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"database_path": "database.path",

	"log_level":  "logging.level",
	"log_format": "logging.format",

	"ghost_api_url":         "ghost.url",
	"ghost_content_api_key": "ghost.content_key",
	"ghost_admin_api_key":   "ghost.admin_key",
	"ghost_recipe_tag":      "ghost.tag",

	"telegram_bot_token":     "telegram.bot_token",
	"telegram_webhook_url":   "telegram.webhook_url",
	"telegram_allow_user_id": "telegram.allow_user_id",
	"http_addr":              "telegram.listen_addr",

	"redis_enabled":  "redis.enabled",
	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",
	"redis_lock_ttl": "redis.lock_ttl",

	"planner_meal_types":        "planner.meal_types",
	"planner_min_favorites":     "planner.min_favorites",
	"planner_timeout":           "planner.timeout",
	"planner_weeknight_minutes": "planner.weeknight_minutes",
	"planner_restrictions":      "planner.restrictions",

	"planner_weight_availability":       "planner.weights.availability",
	"planner_weight_complexity":         "planner.weights.complexity",
	"planner_weight_advance_prep":       "planner.weights.advance_prep",
	"planner_weight_dietary":            "planner.weights.dietary",
	"planner_weight_freshness":          "planner.weights.freshness",
	"planner_weight_equipment_conflict": "planner.weights.equipment_conflict",
}

// envTransformFunc maps known environment variable names to config paths.
// Anything else is ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
