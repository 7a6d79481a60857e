// Package config loads the TOML-backed server and client configuration.
//
// Grounded on original_source/shared/src/consts.rs's
// CLIENT_CONFIG_FILE = "client_conf.toml" constant (now
// protoconst.ClientConfigFile) and generalized to a server config
// too, since core/main.go hand-rolls its configuration in-code
// (loadConfig()) rather than reading a file.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/duskrun-game/netcore/internal/protoconst"
)

// ServerConfig is the authoritative server's TOML-backed settings.
type ServerConfig struct {
	ListenAddr  string `toml:"listen_addr"`
	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
}

// DefaultServerConfig returns the settings used when no config file is present.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:  "[::]:51946",
		MetricsAddr: "127.0.0.1:9100",
		LogLevel:    "info",
	}
}

// LoadServerConfig reads and decodes a ServerConfig from path,
// starting from DefaultServerConfig so an omitted field keeps its
// default value.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config: failed to load server config %s: %w", path, err)
	}
	return cfg, nil
}

// ClientConfig is the client's TOML-backed settings.
type ClientConfig struct {
	ServerAddr  string `toml:"server_addr"`
	PlayerName  string `toml:"player_name"`
	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
}

// DefaultClientConfig returns the settings used when no config file is present.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerAddr: "127.0.0.1:51946",
		PlayerName: "UnknownPlayer",
		LogLevel:   "info",
	}
}

// LoadClientConfig reads and decodes a ClientConfig from path,
// defaulting to protoconst.ClientConfigFile's well-known name when
// path is empty.
func LoadClientConfig(path string) (ClientConfig, error) {
	if path == "" {
		path = protoconst.ClientConfigFile
	}
	cfg := DefaultClientConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config: failed to load client config %s: %w", path, err)
	}
	return cfg, nil
}
