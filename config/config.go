// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Policy rules: shared authorization policy, must match across all nodes
//   - Node settings: runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
// These settings can vary between nodes without breaking the shared policy.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// State storage
	Storage StorageConfig

	// Event relay networking
	Relay RelayConfig

	// RPC server
	RPC RPCConfig

	// Wallet
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// StorageBackend selects the state database implementation.
type StorageBackend string

const (
	BackendBadger StorageBackend = "badger" // embedded LSM store (default)
	BackendSQLite StorageBackend = "sqlite" // single-file SQL store
	BackendMemory StorageBackend = "memory" // volatile, for tests and demos
)

// StorageConfig holds state database settings.
type StorageConfig struct {
	Backend StorageBackend `conf:"storage.backend"`
}

// RelayConfig holds event relay network settings.
type RelayConfig struct {
	Enabled     bool     `conf:"relay.enabled"`
	ListenAddr  string   `conf:"relay.listen"`
	Port        int      `conf:"relay.port"`
	Seeds       []string `conf:"relay.seeds"`
	MaxPeers    int      `conf:"relay.maxpeers"`
	NoDiscover  bool     `conf:"relay.nodiscover"`
	DHTServer   bool     `conf:"relay.dhtserver"` // Run DHT in server mode (for seeds)
	IndexEvents bool     `conf:"relay.index"`     // Persist observed events by account
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// WalletConfig holds custodial wallet settings.
type WalletConfig struct {
	Enabled bool   `conf:"wallet.enabled"`
	Dir     string `conf:"wallet.dir"` // Keystore directory override
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-ledger
//	macOS:   ~/Library/Application Support/KlingnetLedger
//	Windows: %APPDATA%\KlingnetLedger
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-ledger"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetLedger")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetLedger")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetLedger")
	default:
		return filepath.Join(home, ".klingnet-ledger")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StateDir returns the token state database directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.NetworkDataDir(), "state")
}

// KeystoreDir returns the wallet keystore directory.
func (c *Config) KeystoreDir() string {
	if c.Wallet.Dir != "" {
		return c.Wallet.Dir
	}
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// RelayDir returns the relay data directory (node key, peers, event index).
func (c *Config) RelayDir() string {
	return filepath.Join(c.NetworkDataDir(), "relay")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "ledger.conf")
}

// PolicyFile returns the network policy file path.
func (c *Config) PolicyFile() string {
	return filepath.Join(c.NetworkDataDir(), "policy.json")
}
