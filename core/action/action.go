// Package action defines what an evml run produces: an ordered list of
// transaction-like actions for a wallet or batching relay to submit.
package action

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Kind names an action type in the JSON envelope.
type Kind string

const (
	KindTransaction   Kind = "transaction"
	KindBatch         Kind = "batch"
	KindSign          Kind = "sign"
	KindSwitchNetwork Kind = "switch-network"
	KindTerminal      Kind = "terminal"
)

// Action is one item of a run's output. The set of implementations is
// closed: Transaction, Batch, SignRequest, SwitchNetwork and Terminal.
type Action interface {
	Kind() Kind
	action()
}

// Transaction is a contract call or value transfer.
type Transaction struct {
	To                   common.Address
	Data                 []byte
	Value                *big.Int
	From                 *common.Address
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Batch groups transactions that must be submitted together, in order.
type Batch struct {
	Transactions []*Transaction
}

// SignRequest asks the wallet to sign a message.
type SignRequest struct {
	Message string
}

// SwitchNetwork asks the provider to switch to another chain.
type SwitchNetwork struct {
	ChainID *big.Int
}

// Terminal marks the end of a halted run.
type Terminal struct{}

func (*Transaction) Kind() Kind   { return KindTransaction }
func (*Batch) Kind() Kind         { return KindBatch }
func (*SignRequest) Kind() Kind   { return KindSign }
func (*SwitchNetwork) Kind() Kind { return KindSwitchNetwork }
func (*Terminal) Kind() Kind      { return KindTerminal }

func (*Transaction) action()   {}
func (*Batch) action()         {}
func (*SignRequest) action()   {}
func (*SwitchNetwork) action() {}
func (*Terminal) action()      {}

// envelope is the JSON form shared by every action kind.
type envelope struct {
	Type                 Kind            `json:"type"`
	To                   *common.Address `json:"to,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	From                 *common.Address `json:"from,omitempty"`
	Gas                  hexutil.Uint64  `json:"gas,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Transactions         []envelope      `json:"transactions,omitempty"`
	Message              string          `json:"message,omitempty"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

func toEnvelope(a Action) envelope {
	env := envelope{Type: a.Kind()}
	switch a := a.(type) {
	case *Transaction:
		to := a.To
		env.To = &to
		env.Data = a.Data
		env.Value = (*hexutil.Big)(a.Value)
		env.From = a.From
		env.Gas = hexutil.Uint64(a.Gas)
		env.MaxFeePerGas = (*hexutil.Big)(a.MaxFeePerGas)
		env.MaxPriorityFeePerGas = (*hexutil.Big)(a.MaxPriorityFeePerGas)
	case *Batch:
		env.Transactions = make([]envelope, len(a.Transactions))
		for i, tx := range a.Transactions {
			env.Transactions[i] = toEnvelope(tx)
		}
	case *SignRequest:
		env.Message = a.Message
	case *SwitchNetwork:
		env.ChainID = (*hexutil.Big)(a.ChainID)
	}
	return env
}

func fromEnvelope(env envelope) (Action, error) {
	switch env.Type {
	case KindTransaction:
		if env.To == nil {
			return nil, fmt.Errorf("transaction without recipient")
		}
		return &Transaction{
			To:                   *env.To,
			Data:                 env.Data,
			Value:                (*big.Int)(env.Value),
			From:                 env.From,
			Gas:                  uint64(env.Gas),
			MaxFeePerGas:         (*big.Int)(env.MaxFeePerGas),
			MaxPriorityFeePerGas: (*big.Int)(env.MaxPriorityFeePerGas),
		}, nil
	case KindBatch:
		b := &Batch{Transactions: make([]*Transaction, len(env.Transactions))}
		for i, e := range env.Transactions {
			a, err := fromEnvelope(e)
			if err != nil {
				return nil, fmt.Errorf("batch item %d: %w", i, err)
			}
			tx, ok := a.(*Transaction)
			if !ok {
				return nil, fmt.Errorf("batch item %d: expected transaction, got %s", i, a.Kind())
			}
			b.Transactions[i] = tx
		}
		return b, nil
	case KindSign:
		return &SignRequest{Message: env.Message}, nil
	case KindSwitchNetwork:
		return &SwitchNetwork{ChainID: (*big.Int)(env.ChainID)}, nil
	case KindTerminal:
		return &Terminal{}, nil
	}
	return nil, fmt.Errorf("unknown action type %q", env.Type)
}

// MarshalJSON encodes actions as a JSON array of typed envelopes.
func MarshalJSON(actions []Action) ([]byte, error) {
	envs := make([]envelope, len(actions))
	for i, a := range actions {
		envs[i] = toEnvelope(a)
	}
	return json.MarshalIndent(envs, "", "  ")
}

// UnmarshalJSON decodes the output of MarshalJSON.
func UnmarshalJSON(data []byte) ([]Action, error) {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, err
	}
	actions := make([]Action, len(envs))
	for i, env := range envs {
		a, err := fromEnvelope(env)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions[i] = a
	}
	return actions, nil
}

// Transactions flattens batches and drops non-transaction actions.
func Transactions(actions []Action) []*Transaction {
	var out []*Transaction
	for _, a := range actions {
		switch a := a.(type) {
		case *Transaction:
			out = append(out, a)
		case *Batch:
			out = append(out, a.Transactions...)
		}
	}
	return out
}
