package config

import (
	"strings"
	"time"

	"github.com/flowlayer/protoscan/internal/bytesize"
)

// GetDefaultConfig returns a Config populated with the inspection core's
// documented defaults: 32 live transactions for DNS, a much higher cap for
// NFS (whose transactions span many RPCs), a 64 KiB DNS stream reassembly
// buffer, a 255-octet name length limit, and a compression chain depth of
// 128 — all drawn from §5 of the core's concurrency and resource model.
func GetDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Limits: Limits{
			DNSTxCap:                32,
			NFSTxCap:                1024,
			DNSReassemblyBufferSize: 64 * bytesize.KiB,
			DNSMaxNameLength:        255,
			DNSMaxCompressionDepth:  128,
			NFSMaxFileTrackers:      256,
			NFSXIDMapTTL:            30 * time.Second,
		},
	}
}

// ApplyDefaults fills any zero-valued fields of cfg with defaults. Called
// after unmarshalling a partial config file so that a config supplying only
// a handful of overrides still ends up fully populated.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyLimitsDefaults(&cfg.Limits)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyLimitsDefaults(cfg *Limits) {
	d := GetDefaultConfig().Limits

	if cfg.DNSTxCap == 0 {
		cfg.DNSTxCap = d.DNSTxCap
	}
	if cfg.NFSTxCap == 0 {
		cfg.NFSTxCap = d.NFSTxCap
	}
	if cfg.DNSReassemblyBufferSize == 0 {
		cfg.DNSReassemblyBufferSize = d.DNSReassemblyBufferSize
	}
	if cfg.DNSMaxNameLength == 0 {
		cfg.DNSMaxNameLength = d.DNSMaxNameLength
	}
	if cfg.DNSMaxCompressionDepth == 0 {
		cfg.DNSMaxCompressionDepth = d.DNSMaxCompressionDepth
	}
	if cfg.NFSMaxFileTrackers == 0 {
		cfg.NFSMaxFileTrackers = d.NFSMaxFileTrackers
	}
	if cfg.NFSXIDMapTTL == 0 {
		cfg.NFSXIDMapTTL = d.NFSXIDMapTTL
	}
}
