package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the expected config file name in a project directory.
const DefaultFileName = "warren.yml"

// WarrenConfig represents the top-level warren.yml configuration
type WarrenConfig struct {
	Version     string             `yaml:"version"`
	Instance    string             `yaml:"instance"`
	Redis       RedisConfig        `yaml:"redis"`
	Coordinator *CoordinatorConfig `yaml:"coordinator,omitempty"`
	Agents      map[string]Agent   `yaml:"agents,omitempty"`
}

// RedisConfig specifies the task store connection
type RedisConfig struct {
	URL string `yaml:"url"`
}

// CoordinatorConfig specifies the lease coordinator endpoint and lease
// behavior shared by all agents
type CoordinatorConfig struct {
	URL               string `yaml:"url"`
	DefaultTTLSeconds *int   `yaml:"default_ttl_seconds,omitempty"` // Lease duration per claim (default: 300)
}

// Agent represents a single agent configuration
type Agent struct {
	Command              []string `yaml:"command"`
	WorkDir              string   `yaml:"workdir,omitempty"`
	PollIntervalSeconds  int      `yaml:"poll_interval_seconds,omitempty"`  // Default: 5
	ExecTimeoutSeconds   int      `yaml:"exec_timeout_seconds,omitempty"`   // Default: 300
	HeartbeatIntervalSec int      `yaml:"heartbeat_interval_seconds,omitempty"` // Default: TTL/3
}

// Validate performs strict validation on the configuration
func (c *WarrenConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: instance name
	if c.Instance == "" {
		return fmt.Errorf("instance name is required")
	}

	// Required: redis url
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}

	// Apply default coordinator config if missing
	if c.Coordinator == nil {
		c.Coordinator = &CoordinatorConfig{}
	}
	if c.Coordinator.DefaultTTLSeconds == nil {
		defaultTTL := 300
		c.Coordinator.DefaultTTLSeconds = &defaultTTL
	}
	if *c.Coordinator.DefaultTTLSeconds < 1 {
		return fmt.Errorf("coordinator.default_ttl_seconds must be >= 1, got %d", *c.Coordinator.DefaultTTLSeconds)
	}

	// Validate each agent
	for name, agent := range c.Agents {
		if err := agent.Validate(name); err != nil {
			return err
		}
	}

	return nil
}

// Validate performs validation on a single agent configuration
func (a *Agent) Validate(name string) error {
	// Required: command
	if len(a.Command) == 0 {
		return fmt.Errorf("agent '%s': command is required", name)
	}

	if a.PollIntervalSeconds < 0 {
		return fmt.Errorf("agent '%s': poll_interval_seconds must be >= 0", name)
	}
	if a.ExecTimeoutSeconds < 0 {
		return fmt.Errorf("agent '%s': exec_timeout_seconds must be >= 0", name)
	}
	if a.HeartbeatIntervalSec < 0 {
		return fmt.Errorf("agent '%s': heartbeat_interval_seconds must be >= 0", name)
	}

	// If workdir specified, verify path exists
	if a.WorkDir != "" {
		if _, err := os.Stat(a.WorkDir); os.IsNotExist(err) {
			return fmt.Errorf("agent '%s': workdir does not exist: %s", name, a.WorkDir)
		}
	}

	return nil
}

// DefaultTTL returns the configured lease TTL as a duration.
func (c *WarrenConfig) DefaultTTL() time.Duration {
	return time.Duration(*c.Coordinator.DefaultTTLSeconds) * time.Second
}

// PollInterval returns the agent's poll interval, defaulted to 5 seconds.
func (a *Agent) PollInterval() time.Duration {
	if a.PollIntervalSeconds > 0 {
		return time.Duration(a.PollIntervalSeconds) * time.Second
	}
	return 5 * time.Second
}

// ExecTimeout returns the agent's tool timeout, defaulted to 5 minutes.
func (a *Agent) ExecTimeout() time.Duration {
	if a.ExecTimeoutSeconds > 0 {
		return time.Duration(a.ExecTimeoutSeconds) * time.Second
	}
	return 5 * time.Minute
}

// HeartbeatInterval returns the agent's lease heartbeat interval.
// Defaults to a third of the lease TTL so two heartbeats can fail before
// the lease lapses.
func (a *Agent) HeartbeatInterval(leaseTTL time.Duration) time.Duration {
	if a.HeartbeatIntervalSec > 0 {
		return time.Duration(a.HeartbeatIntervalSec) * time.Second
	}
	return leaseTTL / 3
}

// Load reads and validates warren.yml from the specified path
func Load(path string) (*WarrenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config WarrenConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Save writes the configuration to the specified path.
func (c *WarrenConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Default returns a starter configuration for a new project.
func Default(instance string) *WarrenConfig {
	defaultTTL := 300
	return &WarrenConfig{
		Version:  "1.0",
		Instance: instance,
		Redis:    RedisConfig{URL: "redis://localhost:6379"},
		Coordinator: &CoordinatorConfig{
			URL:               "http://localhost:8089",
			DefaultTTLSeconds: &defaultTTL,
		},
	}
}
