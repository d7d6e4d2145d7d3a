package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// openDatabase opens the node's database with the configured backend.
// One database holds both token state (under the state prefix) and the
// relay's peer, ban, and event index records.
func openDatabase(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.StateDir(), 0755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
		return storage.NewSQLite(filepath.Join(cfg.StateDir(), "ledger.db"))
	default:
		return storage.NewBadger(cfg.StateDir())
	}
}

// loadOrCreatePolicy returns the network's authorization policy, writing
// the built-in policy for the configured network on first run. The
// reported bool is true when the file was just created.
func loadOrCreatePolicy(cfg *config.Config) (*config.Policy, bool, error) {
	path := cfg.PolicyFile()
	if _, err := os.Stat(path); err == nil {
		p, loadErr := config.LoadPolicy(path)
		if loadErr != nil {
			return nil, false, fmt.Errorf("load policy %s: %w", path, loadErr)
		}
		return p, false, nil
	}

	p := config.PolicyFor(cfg.Network)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, false, fmt.Errorf("creating network dir: %w", err)
	}
	if err := p.Save(path); err != nil {
		return nil, false, fmt.Errorf("write policy %s: %w", path, err)
	}
	return p, true, nil
}
