package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// Simulation
	SimulationInterval  time.Duration
	SimulationAutostart bool
	SimulationSeed      uint64

	// Filter 防抖
	FilterSettleDelay time.Duration
	FilterSyncDelay   time.Duration
	InitialQuery      string

	// Alerts
	AlertRetention      time.Duration
	AlertThresholdsFile string
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:          getEnv("PORT", "4000"),
		Debug:               getEnvBool("DEBUG", false),
		SimulationInterval:  getEnvDuration("SIMULATION_INTERVAL", 3*time.Second),
		SimulationAutostart: getEnvBool("SIMULATION_AUTOSTART", false),
		SimulationSeed:      getEnvUint("SIMULATION_SEED", 0),
		FilterSettleDelay:   getEnvDuration("FILTER_SETTLE_DELAY", 150*time.Millisecond),
		FilterSyncDelay:     getEnvDuration("FILTER_SYNC_DELAY", 300*time.Millisecond),
		InitialQuery:        getEnv("INITIAL_QUERY", ""),
		AlertRetention:      getEnvDuration("ALERT_RETENTION", 24*time.Hour),
		AlertThresholdsFile: getEnv("ALERT_THRESHOLDS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if c.FilterSettleDelay <= 0 || c.FilterSyncDelay <= 0 {
		return fmt.Errorf("filter delays must be positive")
	}
	if c.AlertRetention <= 0 {
		return fmt.Errorf("alert retention must be positive, got %s", c.AlertRetention)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
