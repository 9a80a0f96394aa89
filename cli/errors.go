package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/runtime/parser"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error) {
	if err == nil {
		return
	}

	var (
		cliErr  *CLIError
		parseEr parser.ParseError
		list    parser.ErrorList
	)
	switch {
	case errors.As(err, &cliErr):
		formatCLIError(w, cliErr)
	case errors.As(err, &list):
		for _, pe := range list {
			formatCLIError(w, &CLIError{Message: pe.Error()})
		}
	case errors.As(err, &parseEr):
		formatCLIError(w, &CLIError{Message: parseEr.Error()})
	default:
		formatCLIError(w, &CLIError{Message: err.Error(), Hint: hintFor(err)})
	}
}

// hintFor suggests a flag for errors caused by a missing collaborator.
func hintFor(err error) string {
	switch {
	case errors.Is(err, chain.ErrNoChain):
		return "pass --rpc or set RPC in the config file"
	case errors.Is(err, chain.ErrNoSigner):
		return "pass --from or set From in the config file"
	case errors.Is(err, chain.ErrNoABI):
		return "pass --abi-dir or call the contract with a full signature"
	}
	return ""
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError) {
	_, _ = fmt.Fprintf(w, "%s%s\n", errorLabel.Sprint("Error: "), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", hintLabel.Sprint("Hint: "), err.Hint)
	}
}
