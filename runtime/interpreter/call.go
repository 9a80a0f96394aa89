package interpreter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/evm"
)

// evalCall runs a read-only contract call: target::method(args).
func (in *Interpreter) evalCall(ctx context.Context, c *ast.CallExpression) (any, error) {
	target, err := in.Eval(ctx, c.Target)
	if err != nil {
		return nil, err
	}
	addr, err := evm.ToAddress(target)
	if err != nil {
		return nil, errors.NewCallError(c, err, "invalid call target")
	}

	method, err := in.ResolveMethod(ctx, addr, c.Method)
	if err != nil {
		return nil, err
	}
	args, err := in.EvalArgs(ctx, c.Args)
	if err != nil {
		return nil, err
	}
	data, err := evm.EncodeCall(method, args)
	if err != nil {
		return nil, err
	}
	ret, err := in.cfg.Clients.Call(ctx, addr, data)
	if err != nil {
		return nil, err
	}
	out, err := evm.DecodeOutput(method, ret)
	if err != nil {
		return nil, err
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

// ResolveMethod finds a method of the contract at address. A full signature
// is parsed directly; a bare name is looked up in the fragments recorded in
// the ABI space, then in the contract's fetched interface.
func (in *Interpreter) ResolveMethod(ctx context.Context, address common.Address, nameOrSig string) (*abi.Method, error) {
	if evm.IsSignature(nameOrSig) {
		return evm.ParseSignature(nameOrSig)
	}
	if v, ok := in.store.GetBindingValue(address.Hex(), bindings.ABI); ok {
		if m, err := evm.FindMethod(v.(*abi.ABI), nameOrSig); err == nil {
			return m, nil
		}
	}
	contract, err := in.fetchABI(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve method %s of %s: %w", nameOrSig, address.Hex(), err)
	}
	return evm.FindMethod(contract, nameOrSig)
}

// ContractABI returns the interface of address: the fetched ABI when one is
// available, otherwise the fragments recorded in the ABI space.
func (in *Interpreter) ContractABI(ctx context.Context, address common.Address) (*abi.ABI, error) {
	contract, err := in.fetchABI(ctx, address)
	if err == nil {
		return contract, nil
	}
	if v, ok := in.store.GetBindingValue(address.Hex(), bindings.ABI); ok {
		return v.(*abi.ABI), nil
	}
	return nil, err
}

// fetchABI memoises resolver lookups in the cache space.
func (in *Interpreter) fetchABI(ctx context.Context, address common.Address) (*abi.ABI, error) {
	key := "abi:" + address.Hex()
	if v, ok := in.store.GetBindingValue(key, bindings.Cache); ok {
		return v.(*abi.ABI), nil
	}
	contract, err := in.cfg.Clients.FetchABI(ctx, address)
	if err != nil {
		return nil, err
	}
	_ = in.store.SetBinding(key, contract, bindings.Cache, true)
	return contract, nil
}
