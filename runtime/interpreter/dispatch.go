package interpreter

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/runtime/capture"
)

// dispatch hands actions to the callback in order and resolves the command's
// captures against the logs of every receipt it got back. Actions a nested
// block already dispatched are skipped.
func (in *Interpreter) dispatch(ctx context.Context, c *ast.CommandExpression, actions []action.Action) error {
	var logs []*types.Log
	var landed bool
	var target *action.Transaction
	for _, a := range actions {
		if _, ok := in.dispatched[a]; ok {
			continue
		}
		receipt, err := in.cfg.ActionCallback(ctx, a)
		if err != nil {
			return err
		}
		in.dispatched[a] = struct{}{}
		if receipt == nil {
			continue
		}
		landed = true
		logs = append(logs, receipt.Logs...)
		if txs := action.Transactions([]action.Action{a}); len(txs) > 0 {
			target = txs[len(txs)-1]
		}
	}
	if landed {
		in.store.FlushCache()
	}
	if len(c.Captures) == 0 {
		return nil
	}

	var contract *abi.ABI
	if target != nil {
		// Inline event types do not need the interface.
		contract, _ = in.ContractABI(ctx, target.To)
	}
	return capture.Resolve(ctx, &types.Receipt{Logs: logs}, contract, c.Captures, in.store, in)
}
