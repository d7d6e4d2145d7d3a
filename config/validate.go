package config

import (
	"fmt"
	"strings"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Relay.Port < 0 || cfg.Relay.Port > 65535 {
		return fmt.Errorf("relay.port must be in range [0, 65535]")
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.Relay.MaxPeers < 0 {
		return fmt.Errorf("relay.maxpeers must not be negative")
	}

	backend := StorageBackend(strings.ToLower(strings.TrimSpace(string(cfg.Storage.Backend))))
	if backend == "" {
		backend = BackendBadger
	}
	switch backend {
	case BackendBadger, BackendSQLite, BackendMemory:
		cfg.Storage.Backend = backend
	default:
		return fmt.Errorf("storage.backend must be %q, %q, or %q",
			BackendBadger, BackendSQLite, BackendMemory)
	}

	return nil
}
