package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wricardo/xiangqi/game/engine"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "XQ_"

// Config is the server configuration
type Config struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`

	// Liveness: a connection silent for LivenessTimeout is torn down, and
	// the registry drops players silent for the same interval.
	LivenessTimeout     time.Duration `yaml:"liveness_timeout"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
	PingInterval        time.Duration `yaml:"ping_interval"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	SendQueueSize       int           `yaml:"send_queue_size"`

	InvitationTTL time.Duration `yaml:"invitation_ttl"`
	MoveTimeout   time.Duration `yaml:"move_timeout"`

	FlyingGeneralPolicy string `yaml:"flying_general_policy"`
	DrawPlyLimit        int    `yaml:"draw_ply_limit"`

	// ChatRate is messages per second per connection; ChatBurst the bucket size
	ChatRate  float64 `yaml:"chat_rate"`
	ChatBurst int     `yaml:"chat_burst"`

	RedisURL string `yaml:"redis_url"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures the logging package
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Host:                "0.0.0.0",
		Port:                8080,
		MaxConnections:      100,
		LivenessTimeout:     2 * time.Minute,
		HeartbeatInterval:   30 * time.Second,
		MaintenanceInterval: 15 * time.Second,
		PingInterval:        54 * time.Second,
		WriteTimeout:        10 * time.Second,
		SendQueueSize:       256,
		InvitationTTL:       5 * time.Minute,
		MoveTimeout:         0,
		FlyingGeneralPolicy: string(engine.FlyingGeneralPrevent),
		DrawPlyLimit:        120,
		ChatRate:            2,
		ChatBurst:           5,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from XQ_* variables. Unparseable values are
// reported, not ignored.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("HOST", &c.Host)
	num("PORT", &c.Port)
	num("MAX_CONNECTIONS", &c.MaxConnections)
	dur("LIVENESS_TIMEOUT", &c.LivenessTimeout)
	dur("HEARTBEAT_INTERVAL", &c.HeartbeatInterval)
	dur("MAINTENANCE_INTERVAL", &c.MaintenanceInterval)
	dur("PING_INTERVAL", &c.PingInterval)
	dur("WRITE_TIMEOUT", &c.WriteTimeout)
	num("SEND_QUEUE_SIZE", &c.SendQueueSize)
	dur("INVITATION_TTL", &c.InvitationTTL)
	dur("MOVE_TIMEOUT", &c.MoveTimeout)
	str("FLYING_GENERAL_POLICY", &c.FlyingGeneralPolicy)
	num("DRAW_PLY_LIMIT", &c.DrawPlyLimit)
	if v, ok := lookup("CHAT_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCHAT_RATE: %w", EnvPrefix, err))
		} else {
			c.ChatRate = f
		}
	}
	num("CHAT_BURST", &c.ChatBurst)
	str("REDIS_URL", &c.RedisURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate checks ranges and cross-field constraints
func (c *Config) Validate() error {
	var problems []string
	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.MaxConnections < 1 {
		problems = append(problems, "max_connections must be positive")
	}
	if c.LivenessTimeout <= 0 {
		problems = append(problems, "liveness_timeout must be positive")
	}
	if c.MaintenanceInterval <= 0 {
		problems = append(problems, "maintenance_interval must be positive")
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.LivenessTimeout {
		problems = append(problems, "ping_interval must be positive and shorter than liveness_timeout")
	}
	if c.HeartbeatInterval < 0 || (c.HeartbeatInterval > 0 && c.HeartbeatInterval >= c.LivenessTimeout) {
		problems = append(problems, "heartbeat_interval must be shorter than liveness_timeout")
	}
	if c.WriteTimeout <= 0 {
		problems = append(problems, "write_timeout must be positive")
	}
	if c.SendQueueSize < 1 {
		problems = append(problems, "send_queue_size must be positive")
	}
	if c.InvitationTTL < 0 || c.MoveTimeout < 0 {
		problems = append(problems, "invitation_ttl and move_timeout cannot be negative")
	}
	if _, err := engine.ParseFlyingGeneralPolicy(c.FlyingGeneralPolicy); err != nil {
		problems = append(problems, err.Error())
	}
	if c.DrawPlyLimit < 0 {
		problems = append(problems, "draw_ply_limit cannot be negative")
	}
	if c.ChatRate <= 0 || c.ChatBurst < 1 {
		problems = append(problems, "chat_rate and chat_burst must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EngineOptions translates the rule settings into engine options
func (c *Config) EngineOptions() []engine.Option {
	policy, err := engine.ParseFlyingGeneralPolicy(c.FlyingGeneralPolicy)
	if err != nil {
		policy = engine.FlyingGeneralPrevent
	}
	return []engine.Option{
		engine.WithFlyingGeneralPolicy(policy),
		engine.WithDrawPlyLimit(c.DrawPlyLimit),
	}
}

// Rules returns the rule validator for the configured flying-general policy
func (c *Config) Rules() engine.Rules {
	policy, err := engine.ParseFlyingGeneralPolicy(c.FlyingGeneralPolicy)
	if err != nil {
		policy = engine.FlyingGeneralPrevent
	}
	return engine.Rules{FlyingGeneral: policy}
}
