package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/runtime/langsvc"
)

// DisplayActions renders actions as a numbered list followed by their
// fingerprint.
func DisplayActions(w io.Writer, actions []action.Action, fingerprint string) {
	for i, a := range actions {
		displayAction(w, fmt.Sprintf("%d.", i+1), "", a)
	}
	if len(actions) == 0 {
		_, _ = fmt.Fprintln(w, faint.Sprint("no actions"))
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", faint.Sprint("fingerprint:"), fingerprint)
}

func displayAction(w io.Writer, label, indent string, a action.Action) {
	switch a := a.(type) {
	case *action.Transaction:
		_, _ = fmt.Fprintf(w, "%s%s %s %s\n", indent, label, accent.Sprint("transaction"), describeTx(a))
	case *action.Batch:
		_, _ = fmt.Fprintf(w, "%s%s %s of %d transactions\n", indent, label, accent.Sprint("batch"), len(a.Transactions))
		for i, tx := range a.Transactions {
			displayAction(w, fmt.Sprintf("%s%d.", label, i+1), indent+"   ", tx)
		}
	case *action.SignRequest:
		_, _ = fmt.Fprintf(w, "%s%s %s %q\n", indent, label, accent.Sprint("sign"), a.Message)
	case *action.SwitchNetwork:
		_, _ = fmt.Fprintf(w, "%s%s %s to chain %s\n", indent, label, accent.Sprint("switch-network"), a.ChainID)
	case *action.Terminal:
		_, _ = fmt.Fprintf(w, "%s%s %s\n", indent, label, accent.Sprint("halt"))
	}
}

func describeTx(tx *action.Transaction) string {
	parts := []string{"to " + tx.To.Hex()}
	if tx.From != nil {
		parts = append(parts, "from "+tx.From.Hex())
	}
	if tx.Value != nil && tx.Value.Sign() != 0 {
		parts = append(parts, "value "+tx.Value.String())
	}
	if tx.Gas != 0 {
		parts = append(parts, fmt.Sprintf("gas %d", tx.Gas))
	}
	if len(tx.Data) > 0 {
		parts = append(parts, "data "+hexutil.Encode(tx.Data))
	}
	return strings.Join(parts, " ")
}

// DisplayDiagnostics prints one "file:line:col: severity: message" line per
// diagnostic.
func DisplayDiagnostics(w io.Writer, file string, diags []langsvc.Diagnostic) {
	for _, d := range diags {
		label := errorLabel.Sprint("error")
		if d.Severity == langsvc.SeverityWarning {
			label = warnLabel.Sprint("warning")
		}
		_, _ = fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", file, d.Line, d.Col, label, d.Message)
	}
}
