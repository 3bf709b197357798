// Package config loads the inspection core's static configuration: logging
// behavior and the per-protocol resource limits named in the core's
// concurrency and resource model (transaction caps, reassembly buffer size,
// name length, and compression-pointer depth).
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PROTOSCAN_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// The core itself never reads this package directly — it is host-driven and
// takes a Limits value at construction time. This package exists so a host
// binary (cmd/protoscan) has a conventional way to assemble that value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/flowlayer/protoscan/internal/bytesize"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the inspection core host.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Limits bounds per-flow memory and state, per §5 of the core's
	// concurrency and resource model.
	Limits Limits `mapstructure:"limits" yaml:"limits"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// Limits bounds the per-flow state each protocol parser may accumulate.
// Exceeding any of these raises an event and drops the offending item; it
// never tears down the flow.
type Limits struct {
	// DNSTxCap is the maximum number of live transactions a DNS flow
	// state retains before the oldest (non-inspected) one is evicted.
	DNSTxCap int `mapstructure:"dns_tx_cap" validate:"required,gt=0" yaml:"dns_tx_cap"`

	// NFSTxCap is the same cap for NFSv4 flow state. NFS transactions can
	// span many RPCs (multi-chunk file transfers), so this is set much
	// higher than the DNS cap by default.
	NFSTxCap int `mapstructure:"nfs_tx_cap" validate:"required,gt=0" yaml:"nfs_tx_cap"`

	// DNSReassemblyBufferSize bounds the per-direction stream reassembly
	// buffer for DNS-over-TCP.
	DNSReassemblyBufferSize bytesize.ByteSize `mapstructure:"dns_reassembly_buffer_size" yaml:"dns_reassembly_buffer_size,omitempty"`

	// DNSMaxNameLength bounds a decoded DNS name's length in octets.
	// RFC 1035 fixes this at 255.
	DNSMaxNameLength int `mapstructure:"dns_max_name_length" validate:"required,gt=0,lte=255" yaml:"dns_max_name_length"`

	// DNSMaxCompressionDepth bounds the number of label-compression
	// pointer dereferences followed while decoding one name.
	DNSMaxCompressionDepth int `mapstructure:"dns_max_compression_depth" validate:"required,gt=0" yaml:"dns_max_compression_depth"`

	// NFSMaxFileTrackers bounds the number of concurrently open
	// file-trackers (one per open handle/direction) per flow.
	NFSMaxFileTrackers int `mapstructure:"nfs_max_file_trackers" validate:"required,gt=0" yaml:"nfs_max_file_trackers"`

	// NFSXIDMapTTL bounds how long an unanswered request's XID map entry
	// is retained before it is dropped as stale.
	NFSXIDMapTTL time.Duration `mapstructure:"nfs_xid_map_ttl" validate:"required,gt=0" yaml:"nfs_xid_map_ttl"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: path to a YAML config file (empty string searches for
//     config.yaml in the working directory, then in the user config
//     directory's protoscan folder)
//
// When no config file is found, the defaults are returned as they are;
// environment variables are not applied in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// setupViper configures viper's environment variable and config file search
// behavior. Environment variables use the PROTOSCAN_ prefix, e.g.
// PROTOSCAN_LIMITS_DNS_TX_CAP=64.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PROTOSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "protoscan"))
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks composes the custom mapstructure decode hooks this
// config needs: human-readable byte sizes and durations.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}
