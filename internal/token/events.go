package token

import (
	"encoding/json"

	"github.com/Klingon-tech/klingnet-ledger/internal/state"
)

// EventTransfer is the name of the event emitted by Mint and Burn.
// Plain transfers do not emit events; they record history instead.
const EventTransfer = "Transfer"

// NullAccount is the counterparty in mint and burn events: value minted
// into existence comes from it, burned value returns to it.
const NullAccount = "0x0"

// TransferEvent is the payload of an EventTransfer event.
type TransferEvent struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value int64  `json:"value"`
}

// emitTransfer records a Transfer event on the transaction. The state
// layer delivers it only if the transaction commits.
func emitTransfer(txn *state.Txn, from, to string, value int64) error {
	payload, err := json.Marshal(TransferEvent{From: from, To: to, Value: value})
	if err != nil {
		return err
	}
	txn.Emit(EventTransfer, payload)
	return nil
}
