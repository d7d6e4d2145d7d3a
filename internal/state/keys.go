// Package state implements the transactional view of the ledger's
// key-value store. Each operation runs inside a Txn that reads committed
// state, buffers its writes, and commits atomically with first-committer-wins
// conflict detection.
package state

import (
	"fmt"
	"strings"
)

// Separator joins the components of a composite key. Parameter values
// must not contain it.
const Separator = "\x00"

// Key kinds used by the token engine.
const (
	KindMeta    = "meta"
	KindSupply  = "supply"
	KindBalance = "balance"
	KindHistory = "history"
)

// Key builds a composite key from a kind and parameters.
// Returns an error if any parameter contains the reserved separator.
func Key(kind string, params ...string) ([]byte, error) {
	if strings.Contains(kind, Separator) {
		return nil, fmt.Errorf("key kind %q contains reserved separator", kind)
	}
	var sb strings.Builder
	sb.WriteString(kind)
	for _, p := range params {
		if strings.Contains(p, Separator) {
			return nil, fmt.Errorf("key parameter %q contains reserved separator", p)
		}
		sb.WriteString(Separator)
		sb.WriteString(p)
	}
	return []byte(sb.String()), nil
}

// KeyPrefix returns the prefix that matches every key of the given kind.
func KeyPrefix(kind string) []byte {
	return []byte(kind + Separator)
}
