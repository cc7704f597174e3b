// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/core/decoder"
)

// EnvPrefix is the prefix of environment overrides, e.g. TTLMANGLE_CAPTURE_FILTER.
const EnvPrefix = "TTLMANGLE"

// Capture engines.
const (
	EnginePcap     = "pcap"
	EngineAFPacket = "afpacket"
)

// Config is resolved once at startup and never mutated afterwards.
type Config struct {
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Relay   RelayConfig   `mapstructure:"relay" yaml:"relay"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Stats   StatsConfig   `mapstructure:"stats" yaml:"stats"`
}

// ─── Capture ───

// CaptureConfig configures the capture source and, through the same handle, the
// transmit path.
type CaptureConfig struct {
	Interface   string          `mapstructure:"interface" yaml:"interface"` // Empty = best-guess default device
	Filter      string          `mapstructure:"filter" yaml:"filter"`       // BPF expression
	Engine      string          `mapstructure:"engine" yaml:"engine"`       // pcap | afpacket
	SnapLen     int             `mapstructure:"snap_len" yaml:"snap_len"`
	Promiscuous bool            `mapstructure:"promiscuous" yaml:"promiscuous"`
	LinkType    decoder.Framing `mapstructure:"link_type" yaml:"link_type"` // auto | ethernet | raw
	ReadTimeout time.Duration   `mapstructure:"read_timeout" yaml:"read_timeout"`
	AFPacket    AFPacketConfig  `mapstructure:"afpacket" yaml:"afpacket"`
}

// AFPacketConfig contains TPACKET_V3 ring settings.
type AFPacketConfig struct {
	BlockSize   int           `mapstructure:"block_size" yaml:"block_size"`
	NumBlocks   int           `mapstructure:"num_blocks" yaml:"num_blocks"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
}

// ─── Relay ───

// RelayConfig configures the queue between capture and transformer.
type RelayConfig struct {
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string           `mapstructure:"level" yaml:"level"`   // trace / debug / info / warn / error
	Format     string           `mapstructure:"format" yaml:"format"` // text / json / pattern
	Pattern    string           `mapstructure:"pattern" yaml:"pattern"`
	TimeFormat string           `mapstructure:"time_format" yaml:"time_format"`
	File       FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// StatsConfig controls the periodic statistics log line. Zero disables it.
type StatsConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// ─── Loading ───

// legacyEnv maps keys to the environment variable names of the original tool.
var legacyEnv = map[string]string{
	"relay.buffer_size": "DP_BUFFER_SIZE",
	"capture.interface": "DP_INTERFACE_NAME",
	"capture.filter":    "DP_FILTER",
}

// flagKeys maps keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"capture.interface": "interface",
	"capture.filter":    "filter",
	"capture.engine":    "engine",
	"capture.link_type": "link-type",
	"relay.buffer_size": "buffer-size",
	"log.level":         "log-level",
	"metrics.enabled":   "metrics",
	"metrics.listen":    "metrics-listen",
	"stats.interval":    "stats-interval",
}

// Load resolves configuration from, in increasing precedence: defaults, the
// optional file at path, environment variables and changed flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		// Explicit names bypass the prefix; the first one set wins.
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", legacy, err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	return decode(v)
}

// Default returns the built-in configuration, ignoring files, environment and flags.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// Defaults are static and always valid.
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %w", core.ErrConfigInvalid, err)
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Capture defaults
	v.SetDefault("capture.interface", "")
	v.SetDefault("capture.filter", core.DefaultFilter)
	v.SetDefault("capture.engine", EnginePcap)
	v.SetDefault("capture.snap_len", core.DefaultSnapLen)
	v.SetDefault("capture.promiscuous", true)
	v.SetDefault("capture.link_type", decoder.FramingAuto.String())
	v.SetDefault("capture.read_timeout", "100ms")
	v.SetDefault("capture.afpacket.block_size", 4*1024*1024)
	v.SetDefault("capture.afpacket.num_blocks", 128)
	v.SetDefault("capture.afpacket.poll_timeout", "100ms")

	// Relay defaults
	v.SetDefault("relay.buffer_size", core.DefaultBufferSize)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.pattern", "%time [%level] %msg %field%n")
	v.SetDefault("log.time_format", "2006-01-02 15:04:05")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "/var/log/ttlmangle/ttlmangle.log")
	v.SetDefault("log.file.rotation.max_size_mb", 100)
	v.SetDefault("log.file.rotation.max_age_days", 30)
	v.SetDefault("log.file.rotation.max_backups", 5)
	v.SetDefault("log.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9091")
	v.SetDefault("metrics.path", "/metrics")

	// Stats defaults
	v.SetDefault("stats.interval", "0s")
}

// ValidateAndApplyDefaults validates configuration and normalises string fields.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Capture ──
	cfg.Capture.Engine = strings.ToLower(strings.TrimSpace(cfg.Capture.Engine))
	switch cfg.Capture.Engine {
	case EnginePcap:
	case EngineAFPacket:
		if cfg.Capture.AFPacket.BlockSize <= 0 || cfg.Capture.AFPacket.NumBlocks <= 0 {
			return fmt.Errorf("%w: capture.afpacket block_size and num_blocks must be positive", core.ErrConfigInvalid)
		}
		if cfg.Capture.AFPacket.BlockSize < cfg.Capture.SnapLen {
			return fmt.Errorf("%w: capture.afpacket.block_size %d is smaller than snap_len %d",
				core.ErrConfigInvalid, cfg.Capture.AFPacket.BlockSize, cfg.Capture.SnapLen)
		}
	default:
		return fmt.Errorf("%w: unsupported capture.engine: %s (must be pcap/afpacket)", core.ErrConfigInvalid, cfg.Capture.Engine)
	}
	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("%w: capture.snap_len must be positive, got %d", core.ErrConfigInvalid, cfg.Capture.SnapLen)
	}
	if cfg.Capture.ReadTimeout <= 0 {
		return fmt.Errorf("%w: capture.read_timeout must be positive, got %s", core.ErrConfigInvalid, cfg.Capture.ReadTimeout)
	}
	cfg.Capture.Interface = strings.TrimSpace(cfg.Capture.Interface)

	// ── Relay ──
	if cfg.Relay.BufferSize <= 0 {
		return fmt.Errorf("%w: relay.buffer_size must be positive, got %d", core.ErrConfigInvalid, cfg.Relay.BufferSize)
	}

	// ── Log ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" && cfg.Log.Format != "pattern" {
		return fmt.Errorf("%w: invalid log format: %s (must be text/json/pattern)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("%w: metrics.path must start with '/', got %q", core.ErrConfigInvalid, cfg.Metrics.Path)
		}
	}

	if cfg.Stats.Interval < 0 {
		return fmt.Errorf("%w: stats.interval must not be negative", core.ErrConfigInvalid)
	}

	return nil
}
