package config

import "testing"

func TestValidate_Defaults(t *testing.T) {
	for _, network := range []NetworkType{Mainnet, Testnet} {
		if err := Validate(Default(network)); err != nil {
			t.Errorf("%s defaults should be valid: %v", network, err)
		}
	}
}

func TestValidate_BackendNormalized(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Storage.Backend = " SQLite "
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("backend = %q, want %q", cfg.Storage.Backend, BackendSQLite)
	}

	cfg.Storage.Backend = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Storage.Backend != BackendBadger {
		t.Errorf("empty backend = %q, want %q", cfg.Storage.Backend, BackendBadger)
	}

	cfg.Storage.Backend = "leveldb"
	if err := Validate(cfg); err == nil {
		t.Error("unknown backend should fail validation")
	}
}

func TestValidate_Network(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Network = "devnet"
	if err := Validate(cfg); err == nil {
		t.Error("unknown network should fail validation")
	}
}
