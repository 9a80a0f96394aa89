package action

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// canonicalVersion is bumped whenever canonicalAction changes shape.
const canonicalVersion = 1

type canonicalList struct {
	Version uint8
	Actions []canonicalAction
}

// canonicalAction is the hashing form of an action. Big integers are kept as
// their minimal big-endian bytes so equal values encode identically.
type canonicalAction struct {
	Type                 string
	To                   []byte
	Data                 []byte
	Value                []byte
	From                 []byte
	Gas                  uint64
	MaxFeePerGas         []byte
	MaxPriorityFeePerGas []byte
	Transactions         []canonicalAction
	Message              string
	ChainID              []byte
}

func bigBytes(n *big.Int) []byte {
	if n == nil || n.Sign() == 0 {
		return nil
	}
	return n.Bytes()
}

func canonicalize(a Action) canonicalAction {
	ca := canonicalAction{Type: string(a.Kind())}
	switch a := a.(type) {
	case *Transaction:
		ca.To = a.To.Bytes()
		ca.Data = a.Data
		ca.Value = bigBytes(a.Value)
		if a.From != nil {
			ca.From = a.From.Bytes()
		}
		ca.Gas = a.Gas
		ca.MaxFeePerGas = bigBytes(a.MaxFeePerGas)
		ca.MaxPriorityFeePerGas = bigBytes(a.MaxPriorityFeePerGas)
	case *Batch:
		ca.Transactions = make([]canonicalAction, len(a.Transactions))
		for i, tx := range a.Transactions {
			ca.Transactions[i] = canonicalize(tx)
		}
	case *SignRequest:
		ca.Message = a.Message
	case *SwitchNetwork:
		ca.ChainID = bigBytes(a.ChainID)
	}
	return ca
}

// MarshalCanonical produces a deterministic CBOR encoding of actions.
func MarshalCanonical(actions []Action) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	list := canonicalList{Version: canonicalVersion, Actions: make([]canonicalAction, len(actions))}
	for i, a := range actions {
		list.Actions[i] = canonicalize(a)
	}

	data, err := encMode.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Fingerprint returns "blake2b:<hex>" over the canonical encoding. Two action
// lists share a fingerprint exactly when they would submit the same calls.
func Fingerprint(actions []Action) (string, error) {
	data, err := MarshalCanonical(actions)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("blake2b:%x", blake2b.Sum256(data)), nil
}
