package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all engine and service configuration
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Gateway GatewayConfig `yaml:"gateway"`
	Service ServiceConfig `yaml:"service"`
	Redis   RedisConfig   `yaml:"redis"`
	JWT     JWTConfig     `yaml:"jwt"`
}

// InventoryConfig sizes one named inventory
type InventoryConfig struct {
	Name  string `yaml:"name"`
	Slots int    `yaml:"slots"`
}

// EngineConfig holds reconciliation engine settings
type EngineConfig struct {
	Inventories       []InventoryConfig `yaml:"inventories"`
	DebounceMs        int               `yaml:"debounce_ms"`         // per-inventory sync debounce
	ConsumeCooldownMs int               `yaml:"consume_cooldown_ms"` // per-slot consume suppression
	CatalogPath       string            `yaml:"catalog_path"`
}

// GatewayConfig holds remote inventory service client settings
type GatewayConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ServiceConfig holds reference inventory service settings
type ServiceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig holds Redis connection settings for the record store
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// JWTConfig holds access token settings shared by the session provider
// and the reference service's auth middleware
type JWTConfig struct {
	Issuer string `yaml:"issuer"`
	Secret string `yaml:"secret"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued settings
func (cfg *Config) ApplyDefaults() {
	if len(cfg.Engine.Inventories) == 0 {
		cfg.Engine.Inventories = []InventoryConfig{
			{Name: "Backpack", Slots: 24},
			{Name: "Toolbar", Slots: 8},
		}
	}
	for i := range cfg.Engine.Inventories {
		if cfg.Engine.Inventories[i].Slots == 0 {
			cfg.Engine.Inventories[i].Slots = 8
		}
	}
	if cfg.Engine.DebounceMs == 0 {
		cfg.Engine.DebounceMs = 90
	}
	if cfg.Engine.ConsumeCooldownMs == 0 {
		cfg.Engine.ConsumeCooldownMs = 250
	}
	if cfg.Gateway.TimeoutMs == 0 {
		cfg.Gateway.TimeoutMs = 10000
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 8090
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "farmsync:"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "gologinserver"
	}
}
