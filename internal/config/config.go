// Package config holds runtime tuning for the server: listeners, storage, worker pools and buffers.
// Game-design values (tiers, formulas, catalogs) live in the domain packages and are not configurable.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Profile names.
const (
	ProfileDefault     = "default"
	ProfileStressTest  = "stress"
	ProfileLowResource = "low"
)

// Config holds tuned parameters for the server.
type Config struct {
	Profile string `json:"profile" validate:"oneof=default stress low"`

	// Network
	ListenAddr string `json:"listen_addr" validate:"required"`

	// Simulation loop
	TickSeconds        int `json:"tick_seconds" validate:"gte=1"`
	DownloadStepMillis int `json:"download_step_millis" validate:"gte=10"`
	SnapshotSeconds    int `json:"snapshot_seconds" validate:"gte=0"`
	SettlementWorkers  int `json:"settlement_workers" validate:"gte=1"`
	EventLogCapacity   int `json:"event_log_capacity" validate:"gte=0"`
	MaxSessions        int `json:"max_sessions" validate:"gte=1"`

	// Per-socket outgoing buffer
	ClientSendBuffer int `json:"client_send_buffer" validate:"gte=1"`

	// Storage
	DBDriver          string `json:"db_driver" validate:"oneof=sqlite postgres memory"`
	DatabaseURL       string `json:"database_url" validate:"required_if=DBDriver postgres"`
	SQLitePath        string `json:"sqlite_path" validate:"required_if=DBDriver sqlite"`
	DBMaxOpenConns    int    `json:"db_max_open_conns" validate:"gte=1"`
	DBMaxIdleConns    int    `json:"db_max_idle_conns" validate:"gte=0,ltefield=DBMaxOpenConns"`
	SnapshotCacheSize int    `json:"snapshot_cache_size" validate:"gte=1"`

	// Rate limiting
	MaxMessagesPerSecond int `json:"max_messages_per_second" validate:"gte=1"`
	MaxClients           int `json:"max_clients" validate:"gte=1"`

	// Logging
	LogLevel string `json:"log_level" validate:"oneof=debug info warn error"`
	LogJSON  bool   `json:"log_json"`
}

// TickInterval is the settlement period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// DownloadStep is the download timer period.
func (c *Config) DownloadStep() time.Duration {
	return time.Duration(c.DownloadStepMillis) * time.Millisecond
}

// SnapshotInterval is how often sessions are saved; zero disables periodic saves.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotSeconds) * time.Second
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		Profile:    ProfileDefault,
		ListenAddr: ":8080",

		TickSeconds:        300,
		DownloadStepMillis: 1000,
		SnapshotSeconds:    60,
		SettlementWorkers:  numCPU,
		EventLogCapacity:   10000,
		MaxSessions:        1000,

		ClientSendBuffer: 64,

		DBDriver:          "sqlite",
		SQLitePath:        "bytelife.db",
		DBMaxOpenConns:    numCPU * 4,
		DBMaxIdleConns:    numCPU * 2,
		SnapshotCacheSize: 512,

		MaxMessagesPerSecond: 100,
		MaxClients:           200,

		LogLevel: "info",
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()
	c := DefaultConfig()
	c.Profile = ProfileStressTest
	c.SettlementWorkers = numCPU * 2
	c.EventLogCapacity = 50000
	c.MaxSessions = 5000
	c.ClientSendBuffer = 128
	c.DBMaxOpenConns = numCPU * 8
	c.DBMaxIdleConns = numCPU * 4
	c.SnapshotCacheSize = 4096
	c.MaxMessagesPerSecond = 500
	c.MaxClients = 500
	return c
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	c := DefaultConfig()
	c.Profile = ProfileLowResource
	c.SettlementWorkers = 2
	c.EventLogCapacity = 1000
	c.MaxSessions = 50
	c.ClientSendBuffer = 8
	c.DBMaxOpenConns = 5
	c.DBMaxIdleConns = 2
	c.SnapshotCacheSize = 32
	c.MaxMessagesPerSecond = 10
	c.MaxClients = 20
	return c
}

// ForProfile returns the preset named profile.
func ForProfile(profile string) (*Config, error) {
	switch profile {
	case "", ProfileDefault:
		return DefaultConfig(), nil
	case ProfileStressTest:
		return StressTestConfig(), nil
	case ProfileLowResource:
		return LowResourceConfig(), nil
	default:
		return nil, fmt.Errorf("unknown config profile %q", profile)
	}
}

// LoadConfig overlays a JSON file onto the preset of the profile it names (default if none).
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var probe struct {
		Profile string `json:"profile"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg, err := ForProfile(probe.Profile)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BYTELIFE_"

// ApplyEnv overrides fields from BYTELIFE_* variables found through lookup (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LISTEN_ADDR":  &c.ListenAddr,
		"DB_DRIVER":    &c.DBDriver,
		"DATABASE_URL": &c.DatabaseURL,
		"SQLITE_PATH":  &c.SQLitePath,
		"LOG_LEVEL":    &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	ints := map[string]*int{
		"TICK_SECONDS":        &c.TickSeconds,
		"SETTLEMENT_WORKERS":  &c.SettlementWorkers,
		"SNAPSHOT_SECONDS":    &c.SnapshotSeconds,
		"SNAPSHOT_CACHE_SIZE": &c.SnapshotCacheSize,
		"MAX_CLIENTS":         &c.MaxClients,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}
	if v, ok := lookup(EnvPrefix + "LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_JSON: %w", EnvPrefix, err)
		}
		c.LogJSON = b
	}
	return nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}
