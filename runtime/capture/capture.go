// Package capture binds values decoded from transaction logs to script
// variables, as described by the -> clauses attached to a command.
package capture

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/evm"
)

// Evaluator evaluates capture filters.
type Evaluator interface {
	Eval(ctx context.Context, n ast.Node) (any, error)
}

// Resolve decodes receipt logs for every clause and writes the selected
// values into the USER space of store. contract may be nil when every clause
// declares its parameter types inline.
func Resolve(ctx context.Context, receipt *types.Receipt, contract *abi.ABI, captures []*ast.EventCapture, store *bindings.Store, eval Evaluator) error {
	for _, capture := range captures {
		if err := resolveOne(ctx, receipt, contract, capture, store, eval); err != nil {
			return errors.Wrap(capture, err)
		}
	}
	return nil
}

func resolveOne(ctx context.Context, receipt *types.Receipt, contract *abi.ABI, capture *ast.EventCapture, store *bindings.Store, eval Evaluator) error {
	event, err := eventShape(contract, capture)
	if err != nil {
		return err
	}

	var filter *common.Address
	if capture.Filter != nil {
		v, err := eval.Eval(ctx, capture.Filter)
		if err != nil {
			return err
		}
		addr, err := evm.ToAddress(v)
		if err != nil {
			return errors.NewExpressionError(capture.Filter, err, "invalid event filter")
		}
		filter = &addr
	}

	matches := matchingLogs(receipt, event, filter)
	if capture.Occurrence >= len(matches) {
		return errors.NewExpressionError(capture, nil,
			"event %s occurrence %d not found, the transaction emitted %d", capture.Event, capture.Occurrence, len(matches))
	}
	decoded := matches[capture.Occurrence]

	for _, b := range capture.Bindings {
		v, err := selectValue(decoded, event, b)
		if err != nil {
			return errors.NewExpressionError(capture, err, "cannot capture %s", b.Variable)
		}
		if err := store.SetBinding(b.Variable, evm.Stringify(v), bindings.User, true); err != nil {
			return err
		}
	}
	return nil
}

func eventShape(contract *abi.ABI, capture *ast.EventCapture) (abi.Event, error) {
	if capture.Params != nil {
		params := make([]evm.EventParam, len(capture.Params))
		for i, p := range capture.Params {
			params[i] = evm.EventParam{Type: p.Type, Indexed: p.Indexed, Name: p.Name}
		}
		return evm.NewEvent(capture.Event, params)
	}
	if contract == nil {
		return abi.Event{}, fmt.Errorf("no ABI to decode event %s, declare its parameter types inline", capture.Event)
	}
	return evm.EventByName(contract, capture.Event)
}

func matchingLogs(receipt *types.Receipt, event abi.Event, filter *common.Address) []*evm.DecodedLog {
	if receipt == nil {
		return nil
	}
	var matches []*evm.DecodedLog
	for _, l := range receipt.Logs {
		if filter != nil && l.Address != *filter {
			continue
		}
		decoded, err := evm.DecodeLog(event, l)
		if err != nil || decoded.Event != event.Name {
			continue
		}
		matches = append(matches, decoded)
	}
	return matches
}

func selectValue(decoded *evm.DecodedLog, event abi.Event, b *ast.CaptureBinding) (any, error) {
	var v any = decoded.Values
	path := b.Path
	if b.Field != "" {
		fv, ok := decoded.Fields[b.Field]
		if !ok {
			return nil, fmt.Errorf("event %s has no field %s", event.Name, b.Field)
		}
		v = fv
	} else if len(path) == 0 {
		path = []int{0}
	}

	for _, idx := range path {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot index %s with %d", evm.Stringify(v), idx)
		}
		if idx < 0 || idx >= len(list) {
			return nil, fmt.Errorf("index %d out of range, the value has %d elements", idx, len(list))
		}
		v = list[idx]
	}
	return v, nil
}
