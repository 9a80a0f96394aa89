// Package evm adapts go-ethereum's accounts/abi to evml values.
//
// Script values are dynamically typed: strings (addresses are checksummed
// strings, byte strings 0x-prefixed hex), *big.Int, bool and []any. This
// package parses human-readable signatures such as
// "transfer(address,uint256)" or "balanceOf(address)(uint256)", converts
// script values to the Go types abi.Arguments.Pack expects, and turns decoded
// results back into script values.
package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ParseSignature parses name(types) into a method without outputs.
func ParseSignature(sig string) (*abi.Method, error) {
	name, inputs, rest, err := splitSignature(sig)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("invalid signature %q: unexpected %q", sig, rest)
	}
	return newMethod(name, inputs, nil)
}

// ParseSignatureWithReturns parses name(inTypes)(outTypes).
func ParseSignatureWithReturns(sig string) (*abi.Method, error) {
	name, inputs, rest, err := splitSignature(sig)
	if err != nil {
		return nil, err
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return nil, fmt.Errorf("invalid signature %q: missing return types", sig)
	}
	outputs, err := splitTypeList(rest[1 : len(rest)-1])
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", sig, err)
	}
	return newMethod(name, inputs, outputs)
}

// IsSignature reports whether s looks like name(...).
func IsSignature(s string) bool {
	open := strings.IndexByte(s, '(')
	return open > 0 && strings.HasSuffix(s, ")")
}

func splitSignature(sig string) (name string, inputs []string, rest string, err error) {
	sig = strings.TrimSpace(sig)
	open := strings.IndexByte(sig, '(')
	if open <= 0 {
		return "", nil, "", fmt.Errorf("invalid signature %q: missing parameter list", sig)
	}
	name = sig[:open]
	for i, c := range name {
		valid := c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || (i > 0 && '0' <= c && c <= '9')
		if !valid {
			return "", nil, "", fmt.Errorf("invalid signature %q: bad method name", sig)
		}
	}

	closeIdx := matchParen(sig, open)
	if closeIdx < 0 {
		return "", nil, "", fmt.Errorf("invalid signature %q: missing ')'", sig)
	}
	inputs, err = splitTypeList(sig[open+1 : closeIdx])
	if err != nil {
		return "", nil, "", fmt.Errorf("invalid signature %q: %w", sig, err)
	}
	return name, inputs, sig[closeIdx+1:], nil
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTypeList splits "address to, (uint256,bool)[] items" on top-level
// commas and drops parameter names.
func splitTypeList(list string) ([]string, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}

	var types []string
	depth, last := 0, 0
	flush := func(end int) error {
		part := strings.TrimSpace(list[last:end])
		if part == "" {
			return fmt.Errorf("empty parameter type")
		}
		types = append(types, typeOf(part))
		return nil
	}
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				last = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", list)
	}
	if err := flush(len(list)); err != nil {
		return nil, err
	}
	return types, nil
}

// typeOf strips an optional parameter name ("address to" -> "address").
func typeOf(param string) string {
	if strings.HasPrefix(param, "(") {
		closeIdx := matchParen(param, 0)
		if closeIdx < 0 {
			return param
		}
		suffix := param[closeIdx+1:]
		if sp := strings.IndexAny(suffix, " \t"); sp >= 0 {
			suffix = suffix[:sp]
		}
		return param[:closeIdx+1] + suffix
	}
	if fields := strings.Fields(param); len(fields) > 0 {
		return fields[0]
	}
	return param
}

// NewType builds an abi.Type from its canonical string, including tuple types
// written as (t1,t2) with optional array suffixes.
func NewType(t string) (abi.Type, error) {
	m, err := marshaling(t, "")
	if err != nil {
		return abi.Type{}, err
	}
	return abi.NewType(m.Type, "", m.Components)
}

func marshaling(t, name string) (abi.ArgumentMarshaling, error) {
	t = strings.TrimSpace(t)
	if !strings.HasPrefix(t, "(") {
		return abi.ArgumentMarshaling{Name: name, Type: canonicalType(t)}, nil
	}

	closeIdx := matchParen(t, 0)
	if closeIdx < 0 {
		return abi.ArgumentMarshaling{}, fmt.Errorf("unbalanced tuple type %q", t)
	}
	elems, err := splitTypeList(t[1:closeIdx])
	if err != nil {
		return abi.ArgumentMarshaling{}, err
	}
	components := make([]abi.ArgumentMarshaling, len(elems))
	for i, e := range elems {
		c, err := marshaling(e, fmt.Sprintf("field%d", i))
		if err != nil {
			return abi.ArgumentMarshaling{}, err
		}
		components[i] = c
	}
	return abi.ArgumentMarshaling{Name: name, Type: "tuple" + t[closeIdx+1:], Components: components}, nil
}

// canonicalType expands the aliases solc accepts in signatures.
func canonicalType(t string) string {
	base, suffix := t, ""
	if i := strings.IndexByte(t, '['); i >= 0 {
		base, suffix = t[:i], t[i:]
	}
	switch base {
	case "uint":
		base = "uint256"
	case "int":
		base = "int256"
	case "byte":
		base = "bytes1"
	}
	return base + suffix
}

// NewArguments builds unnamed arguments from type strings. Names are arg0,
// arg1, ... so the arguments can also be unpacked into a map.
func NewArguments(types []string) (abi.Arguments, error) {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := NewType(t)
		if err != nil {
			return nil, err
		}
		args[i] = abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: typ}
	}
	return args, nil
}

func newMethod(name string, inputs, outputs []string) (*abi.Method, error) {
	in, err := NewArguments(inputs)
	if err != nil {
		return nil, err
	}
	out, err := NewArguments(outputs)
	if err != nil {
		return nil, err
	}
	m := abi.NewMethod(name, name, abi.Function, "", false, false, in, out)
	return &m, nil
}

// MethodSignature renders a method as name(type,...).
func MethodSignature(m *abi.Method) string {
	return m.Sig
}

// FindMethod looks a method up in a contract ABI by name or full signature.
// A bare name must be unambiguous.
func FindMethod(contract *abi.ABI, nameOrSig string) (*abi.Method, error) {
	if IsSignature(nameOrSig) {
		parsed, err := ParseSignature(nameOrSig)
		if err != nil {
			return nil, err
		}
		for _, m := range contract.Methods {
			if m.Sig == parsed.Sig {
				m := m
				return &m, nil
			}
		}
		return nil, fmt.Errorf("method %s not found in contract ABI", parsed.Sig)
	}

	var found *abi.Method
	for _, m := range contract.Methods {
		if m.RawName == nameOrSig {
			if found != nil {
				return nil, fmt.Errorf("method %s is overloaded, use its full signature", nameOrSig)
			}
			m := m
			found = &m
		}
	}
	if found == nil {
		return nil, fmt.Errorf("method %s not found in contract ABI", nameOrSig)
	}
	return found, nil
}
