// Package config loads connection settings for one controller from a TOML
// file, overlaying explicit keys on the documented defaults.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"armlink/transport"
)

// Config is everything needed to dial one controller.
type Config struct {
	Address string
	Port    uint16

	TCPTimeout   time.Duration
	UDPTimeout   time.Duration
	PollInterval time.Duration
	KeepAlive    transport.KeepAlive
}

// Default returns the controller's documented defaults; only the address
// must come from somewhere else.
func Default() Config {
	opts := transport.DefaultOptions()
	return Config{
		Port:         1337,
		TCPTimeout:   opts.TCPTimeout,
		UDPTimeout:   opts.UDPTimeout,
		PollInterval: opts.PollInterval,
		KeepAlive:    opts.KeepAlive,
	}
}

// fileConfig maps the TOML keys. Durations are spelled out per unit so the
// file stays readable next to the controller's own configuration.
type fileConfig struct {
	Address           string `toml:"address"`
	Port              int    `toml:"port"`
	TCPTimeoutMS      int    `toml:"tcp_timeout_ms"`
	UDPTimeoutMS      int    `toml:"udp_timeout_ms"`
	PollIntervalUS    int    `toml:"poll_interval_us"`
	KeepaliveEnabled  bool   `toml:"keepalive_enabled"`
	KeepaliveIdleS    int    `toml:"keepalive_idle_s"`
	KeepaliveProbeS   int    `toml:"keepalive_probe_interval_s"`
	KeepaliveProbeCnt int    `toml:"keepalive_probe_count"`
}

// Load reads path and overlays the keys it defines on Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load controller config: %w", err)
	}

	if meta.IsDefined("address") {
		cfg.Address = raw.Address
	}
	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return Config{}, fmt.Errorf("load controller config: port %d out of range", raw.Port)
		}
		cfg.Port = uint16(raw.Port)
	}
	if meta.IsDefined("tcp_timeout_ms") {
		cfg.TCPTimeout = time.Duration(raw.TCPTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("udp_timeout_ms") {
		cfg.UDPTimeout = time.Duration(raw.UDPTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("poll_interval_us") {
		cfg.PollInterval = time.Duration(raw.PollIntervalUS) * time.Microsecond
	}
	if meta.IsDefined("keepalive_enabled") {
		cfg.KeepAlive.Enable = raw.KeepaliveEnabled
	}
	if meta.IsDefined("keepalive_idle_s") {
		cfg.KeepAlive.Idle = time.Duration(raw.KeepaliveIdleS) * time.Second
	}
	if meta.IsDefined("keepalive_probe_interval_s") {
		cfg.KeepAlive.Interval = time.Duration(raw.KeepaliveProbeS) * time.Second
	}
	if meta.IsDefined("keepalive_probe_count") {
		cfg.KeepAlive.Count = raw.KeepaliveProbeCnt
	}

	if cfg.Address == "" {
		return Config{}, fmt.Errorf("load controller config: address is required")
	}
	return cfg, nil
}

// TransportOptions converts the config into transport tuning.
func (c Config) TransportOptions() transport.Options {
	opts := transport.DefaultOptions()
	opts.TCPTimeout = c.TCPTimeout
	opts.UDPTimeout = c.UDPTimeout
	opts.PollInterval = c.PollInterval
	opts.KeepAlive = c.KeepAlive
	return opts
}
