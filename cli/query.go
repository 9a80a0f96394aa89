package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/module"
)

// newQueryCmd builds the complete, hover and signature subcommands. Each
// prints the language service answer at --line/--col as JSON.
func newQueryCmd(opts *options, name, short string) *cobra.Command {
	var line, col int
	cmd := &cobra.Command{
		Use:   name + " FILE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readScript(cmd, args[0])
			if err != nil {
				return err
			}
			svc := newService(opts.config)
			ctx, text, pos := cmd.Context(), string(src), ast.Position{Line: line, Col: col}

			var answer any
			switch name {
			case "complete":
				answer = svc.Completions(ctx, text, pos)
			case "hover":
				answer = svc.Hover(ctx, text, pos)
			case "signature":
				answer = svc.SignatureHelp(ctx, text, pos)
			}
			return writeJSON(cmd.OutOrStdout(), answer)
		},
	}
	cmd.Flags().IntVar(&line, "line", 1, "cursor line (1-based)")
	cmd.Flags().IntVar(&col, "col", 0, "cursor column (0-based)")
	return cmd
}

func newSymbolsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols FILE",
		Short: "Print the document outline as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readScript(cmd, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newService(opts.config).DocumentSymbols(string(src)))
		},
	}
}

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the registered modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listModules(cmd.OutOrStdout(), module.Global())
		},
	}
}

func listModules(w io.Writer, r *module.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range r.Export() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", accent.Sprint(d.Name), d.Version, d.Summary)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
