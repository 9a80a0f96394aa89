package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventParam is one parameter of an inline event declaration.
type EventParam struct {
	Type    string
	Indexed bool
	Name    string
}

// NewEvent builds an event shape from an inline type list. Unnamed
// parameters are named argN after their declaration index.
func NewEvent(name string, params []EventParam) (abi.Event, error) {
	args := make(abi.Arguments, len(params))
	for i, p := range params {
		typ, err := NewType(p.Type)
		if err != nil {
			return abi.Event{}, fmt.Errorf("event %s parameter %d: %w", name, i, err)
		}
		argName := p.Name
		if argName == "" {
			argName = fmt.Sprintf("arg%d", i)
		}
		args[i] = abi.Argument{Name: argName, Type: typ, Indexed: p.Indexed}
	}
	return abi.NewEvent(name, name, false, args), nil
}

// DecodedLog is a log decoded against an event shape. Values holds the
// parameters in declaration order; Fields maps parameter names to the same
// values.
type DecodedLog struct {
	Event  string
	Values []any
	Fields map[string]any
}

// DecodeLog decodes l against ev. It fails when the log was not emitted by ev.
func DecodeLog(ev abi.Event, l *types.Log) (*DecodedLog, error) {
	if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return nil, fmt.Errorf("log is not a %s event", ev.Name)
	}

	raw := make(map[string]any, len(ev.Inputs))
	if len(l.Data) > 0 {
		if err := ev.Inputs.UnpackIntoMap(raw, l.Data); err != nil {
			return nil, fmt.Errorf("decoding %s data: %w", ev.Name, err)
		}
	}
	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if err := abi.ParseTopicsIntoMap(raw, indexed, l.Topics[1:]); err != nil {
		return nil, fmt.Errorf("decoding %s topics: %w", ev.Name, err)
	}

	out := &DecodedLog{Event: ev.Name, Values: make([]any, len(ev.Inputs)), Fields: make(map[string]any, len(ev.Inputs))}
	for i, in := range ev.Inputs {
		v := FromABIValue(raw[in.Name])
		out.Values[i] = v
		out.Fields[in.Name] = v
	}
	return out, nil
}

// EventByName finds a non-overloaded event in a contract ABI.
func EventByName(contract *abi.ABI, name string) (abi.Event, error) {
	if ev, ok := contract.Events[name]; ok {
		return ev, nil
	}
	for _, ev := range contract.Events {
		if ev.RawName == name {
			return ev, nil
		}
	}
	return abi.Event{}, fmt.Errorf("event %s not found in contract ABI", name)
}
