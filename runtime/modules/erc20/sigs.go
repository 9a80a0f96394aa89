package erc20

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/evmcrispr/evml/core/evm"
)

func mustParse(sig string) *abi.Method {
	m, err := evm.ParseSignature(sig)
	if err != nil {
		panic(err)
	}
	return m
}

func mustParseReturns(sig string) *abi.Method {
	m, err := evm.ParseSignatureWithReturns(sig)
	if err != nil {
		panic(err)
	}
	return m
}
