package relay

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
	"github.com/google/uuid"
)

// Envelope validation errors.
var (
	ErrEnvelopeUnsigned = errors.New("envelope has no pubkey or signature")
	ErrEnvelopeBadSig   = errors.New("envelope signature does not verify")
)

// Envelope wraps one committed ledger event for relay between nodes.
// The emitting node signs it with its identity key; receivers drop
// envelopes whose signature does not verify.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emitted_at"`
	PubKey    []byte          `json:"pubkey"`
	Sig       []byte          `json:"sig"`
}

// Seal wraps an event in a new signed envelope.
func Seal(event string, payload []byte, signer *crypto.PrivateKey) (*Envelope, error) {
	if event == "" {
		return nil, fmt.Errorf("empty event name")
	}
	if signer == nil {
		return nil, fmt.Errorf("nil signer")
	}

	env := &Envelope{
		ID:        uuid.New(),
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}

	hash := env.SigningHash()
	sig, err := signer.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}
	env.PubKey = signer.PublicKey()
	env.Sig = sig
	return env, nil
}

// SigningBytes returns the canonical bytes for hashing/signing.
// Excludes PubKey and Sig so the hash is stable for signing.
// Format: id(16) | emitted_at_unixnano(8) | event_len(4) | event | payload
func (e *Envelope) SigningBytes() []byte {
	buf := make([]byte, 0, 28+len(e.Event)+len(e.Payload))
	buf = append(buf, e.ID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.EmittedAt.UnixNano()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Event)))
	buf = append(buf, e.Event...)
	buf = append(buf, e.Payload...)
	return buf
}

// SigningHash computes the hash covered by the envelope signature.
func (e *Envelope) SigningHash() types.Hash {
	return crypto.Hash(e.SigningBytes())
}

// Verify checks the envelope signature against its contents.
func (e *Envelope) Verify() error {
	if e.Event == "" {
		return fmt.Errorf("envelope has no event name")
	}
	if len(e.PubKey) == 0 || len(e.Sig) == 0 {
		return ErrEnvelopeUnsigned
	}
	hash := e.SigningHash()
	if !crypto.VerifySignature(hash[:], e.Sig, e.PubKey) {
		return ErrEnvelopeBadSig
	}
	return nil
}

// Origin returns the address of the node that sealed the envelope.
func (e *Envelope) Origin() types.Address {
	return crypto.AddressFromPubKey(e.PubKey)
}
