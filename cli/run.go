package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/interpreter"
	"github.com/evmcrispr/evml/runtime/parser"
)

func newRunCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a script and print the actions it produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readScript(cmd, args[0])
			if err != nil {
				return err
			}
			actions, err := runScript(cmd, opts.config, args[0], src)
			if err != nil {
				return err
			}
			fingerprint, err := action.Fingerprint(actions)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := action.MarshalJSON(actions)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "%s\n", data)
				return nil
			}
			DisplayActions(out, actions, fingerprint)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the actions as JSON")
	return cmd
}

func runScript(cmd *cobra.Command, cfg Config, file string, src []byte) ([]action.Action, error) {
	ctx := cmd.Context()
	tree, err := parser.Parse(src, parser.WithFilename(file))
	if err != nil {
		return nil, err
	}
	if err := tree.Err(); err != nil {
		return nil, err
	}

	clients, closeClients, err := dialClients(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeClients()

	in, err := interpreter.New(interpreter.Config{
		Registry:     module.Global(),
		Clients:      clients,
		Logger:       log.Root(),
		ParallelArgs: true,
	})
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.Modules {
		if _, err := in.LoadModule(name, ""); err != nil {
			return nil, &CLIError{Message: fmt.Sprintf("cannot preload module %s", name), Details: err.Error()}
		}
	}
	return in.Run(ctx, tree.Program)
}
