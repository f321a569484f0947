package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/utils"
)

// Config is the runtime configuration assembled once in the composition
// root: engine tuning constants plus the operational feature flags.
type Config struct {
	Engine predict.Config `yaml:"engine"`

	PredictionEnabled bool `yaml:"prediction_enabled"`
	WritesEnabled     bool `yaml:"writes_enabled"`

	PlanCacheEnabled    bool `yaml:"plan_cache_enabled"`
	PlanCacheTTLSeconds int  `yaml:"plan_cache_ttl_seconds"`
}

func Default() Config {
	return Config{
		Engine:              predict.DefaultConfig(),
		PredictionEnabled:   true,
		WritesEnabled:       true,
		PlanCacheEnabled:    true,
		PlanCacheTTLSeconds: 300,
	}
}

// Load builds the configuration from defaults, then the optional YAML tuning
// file at ENGINE_CONFIG_PATH, then environment overrides for the flags.
func Load(log *logger.Logger) (Config, error) {
	cfg := Default()

	path := utils.GetEnv("ENGINE_CONFIG_PATH", "", log)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read engine config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse engine config %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded engine config file", "path", path)
		}
	}

	cfg.PredictionEnabled = utils.GetEnvAsBool("PREDICTION_ENABLED", cfg.PredictionEnabled, log)
	cfg.WritesEnabled = utils.GetEnvAsBool("PREDICTION_WRITES_ENABLED", cfg.WritesEnabled, log)
	cfg.PlanCacheEnabled = utils.GetEnvAsBool("ENABLE_PLAN_CACHE", cfg.PlanCacheEnabled, log)
	cfg.PlanCacheTTLSeconds = utils.GetEnvAsInt("PLAN_CACHE_TTL_SECONDS", cfg.PlanCacheTTLSeconds, log)

	return cfg, nil
}
