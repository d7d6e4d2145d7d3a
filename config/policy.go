package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// =============================================================================
// Policy Rules (shared across the network)
// These MUST match across all nodes or authorization decisions diverge.
// =============================================================================

// Default organization labels.
const (
	DefaultAdminOrganization  = "ledger-admins"
	DefaultMemberOrganization = "members"
)

// Policy holds the shared authorization policy for a ledger network.
// It is distributed out of band; every node of a network must carry the
// same policy, or a privileged operation accepted by one node would be
// rejected by another.
type Policy struct {
	// Network identity
	NetworkID   string `json:"network_id"`
	NetworkName string `json:"network_name"`

	// Organization labels reported for accounts.
	AdminOrganization  string `json:"admin_organization"`
	MemberOrganization string `json:"member_organization"`

	// Administrators lists the account addresses that belong to the
	// administrator organization. Entries may be bech32 or raw hex.
	Administrators []string `json:"administrators"`
}

// OrganizationOf returns the organization label for an account address.
// Accounts that do not parse as addresses are treated as plain members.
func (p *Policy) OrganizationOf(account string) string {
	addr, err := types.ParseAddress(account)
	if err != nil {
		return p.MemberOrganization
	}
	for _, s := range p.Administrators {
		a, err := types.ParseAddress(s)
		if err != nil {
			continue
		}
		if a == addr {
			return p.AdminOrganization
		}
	}
	return p.MemberOrganization
}

// IsAdmin reports whether org is the administrator organization.
func (p *Policy) IsAdmin(org string) bool {
	return org != "" && org == p.AdminOrganization
}

// =============================================================================
// Testnet Identity
//
// Derived from the well-known BIP-39 test mnemonic (DO NOT use on mainnet):
//
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon art
//
// Derivation path: m/44'/8888'/0'/0/0 (no passphrase)
// =============================================================================

const (
	// TestnetMnemonic is the well-known seed phrase for the testnet administrator.
	TestnetMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

	// TestnetAdminPubKey is the compressed public key (hex) derived from TestnetMnemonic.
	TestnetAdminPubKey = "030bef68f8657df88098a0546da1712c88b459788bea1a6bbe964004166a25144f"

	// TestnetAdminPrivKey is the private key (hex) derived from TestnetMnemonic.
	TestnetAdminPrivKey = "1f0717e6e34acc6721021f4dfed54558ec8452452b6195545d06dd348b220091"
)

// TestnetAdminAddress returns the testnet administrator address derived
// from TestnetAdminPubKey, encoded with the currently active HRP.
// Address = BLAKE3(pubkey)[:20]
func TestnetAdminAddress() string {
	raw, err := hex.DecodeString(TestnetAdminPubKey)
	if err != nil {
		return ""
	}
	return crypto.AddressFromPubKey(raw).String()
}

// MainnetAdminAddress is the initial mainnet administrator account, in
// raw hex so the encoding is independent of the active HRP.
const MainnetAdminAddress = "a8f3c91b5e2d70c64f1a0d9e8b37245c6d90e1f2"

// =============================================================================
// Pre-defined policies
// =============================================================================

// MainnetPolicy returns the mainnet authorization policy.
func MainnetPolicy() *Policy {
	return &Policy{
		NetworkID:          "klingnet-ledger-mainnet-1",
		NetworkName:        "Klingnet Ledger Mainnet",
		AdminOrganization:  DefaultAdminOrganization,
		MemberOrganization: DefaultMemberOrganization,
		Administrators:     []string{MainnetAdminAddress},
	}
}

// TestnetPolicy returns the testnet authorization policy.
func TestnetPolicy() *Policy {
	p := MainnetPolicy()
	p.NetworkID = "klingnet-ledger-testnet-1"
	p.NetworkName = "Klingnet Ledger Testnet"

	// Testnet administrator: derived from the well-known mnemonic.
	p.Administrators = []string{TestnetAdminAddress()}
	return p
}

// PolicyFor returns the policy for the given network.
func PolicyFor(network NetworkType) *Policy {
	switch network {
	case Testnet:
		return TestnetPolicy()
	default:
		return MainnetPolicy()
	}
}

// =============================================================================
// Policy file I/O
// =============================================================================

// LoadPolicy loads an authorization policy from a file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	return &p, nil
}

// Save writes the authorization policy to a file.
func (p *Policy) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding policy: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing policy file: %w", err)
	}

	return nil
}

// Validate checks that the policy is internally consistent.
func (p *Policy) Validate() error {
	if p.NetworkID == "" {
		return fmt.Errorf("network_id is required")
	}
	if p.AdminOrganization == "" || p.MemberOrganization == "" {
		return fmt.Errorf("organization labels are required")
	}
	if p.AdminOrganization == p.MemberOrganization {
		return fmt.Errorf("admin and member organizations must differ")
	}
	if len(p.Administrators) == 0 {
		return fmt.Errorf("at least one administrator is required")
	}

	seen := make(map[types.Address]struct{}, len(p.Administrators))
	for i, s := range p.Administrators {
		addr, err := types.ParseAddress(s)
		if err != nil {
			return fmt.Errorf("invalid administrator address %q: %w", s, err)
		}
		if _, ok := seen[addr]; ok {
			return fmt.Errorf("administrators[%d] duplicates %q", i, s)
		}
		seen[addr] = struct{}{}
	}

	return nil
}

// Hash returns a BLAKE3 hash of the policy.
// Used to identify the network and detect policy mismatches between peers.
func (p *Policy) Hash() (types.Hash, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
