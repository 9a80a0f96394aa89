package langsvc

import (
	"context"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/module"
)

// SignatureHelp describes the command or helper being called at the cursor.
type SignatureHelp struct {
	Label           string          `json:"label"`
	Documentation   string          `json:"documentation,omitempty"`
	Parameters      []ParameterInfo `json:"parameters"`
	ActiveParameter int             `json:"activeParameter"` // -1 when the cursor is on an option
}

// ParameterInfo is one parameter of a signature.
type ParameterInfo struct {
	Label         string `json:"label"`
	Documentation string `json:"documentation,omitempty"`
}

// SignatureHelp returns the signature of the innermost helper call still
// open at pos, or else of the command on the line. It returns nil when the
// cursor is on a command name or nothing resolves.
func (s *Service) SignatureHelp(ctx context.Context, text string, pos ast.Position) (sig *SignatureHelp) {
	defer s.guard("signature help")

	sc := scanLine(prefixAt(lineAt(text, pos.Line), pos.Col))
	if sc.comment || sc.atCommandName() && sc.helper == "" {
		return nil
	}
	res := s.analyze(ctx, text, pos)
	if res.Default == nil {
		return nil
	}

	if sc.helper != "" {
		for _, m := range res.Modules() {
			if h, ok := m.Helpers[sc.helper]; ok {
				return &SignatureHelp{
					Label:           helperSignature(sc.helper, h),
					Documentation:   h.Summary,
					Parameters:      parameters(h.Args),
					ActiveParameter: activeParameter(h.Args, sc.helperArg),
				}
			}
		}
		return nil
	}

	_, cmd, ok := lineCommand(res, sc)
	if !ok {
		return nil
	}
	index, inOption := sc.argIndex()
	active := activeParameter(cmd.Args, index)
	if inOption {
		active = -1
	}
	return &SignatureHelp{
		Label:           usage(sc.commandName(), cmd),
		Documentation:   cmd.Summary,
		Parameters:      parameters(cmd.Args),
		ActiveParameter: active,
	}
}

func parameters(args []module.ArgSpec) []ParameterInfo {
	out := make([]ParameterInfo, len(args))
	for i, a := range args {
		out[i] = ParameterInfo{Label: argLabel(a), Documentation: a.Type}
	}
	return out
}

// activeParameter maps an argument index onto the declared parameters; extra
// arguments belong to a trailing rest parameter.
func activeParameter(args []module.ArgSpec, index int) int {
	if len(args) == 0 {
		return -1
	}
	if index >= len(args) {
		if args[len(args)-1].Rest {
			return len(args) - 1
		}
		return -1
	}
	return index
}
