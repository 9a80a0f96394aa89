package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	_ "github.com/evmcrispr/evml/runtime/modules/erc20"
	_ "github.com/evmcrispr/evml/runtime/modules/std"
)

// options are the global flags.
type options struct {
	configFile string
	rpc        string
	from       string
	abiDir     string
	verbosity  string
	noColor    bool

	config Config // file values with flags applied
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "evml",
		Short:         "Compile evml scripts into transaction actions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "TOML configuration file")
	flags.StringVar(&opts.rpc, "rpc", "", "JSON-RPC endpoint used for contract reads")
	flags.StringVar(&opts.from, "from", "", "account actions are sent from (@me)")
	flags.StringVar(&opts.abiDir, "abi-dir", "", "directory of <address>.json contract ABIs")
	flags.StringVar(&opts.verbosity, "verbosity", defaultConfig.Verbosity, "log level: trace, debug, info, warn or error")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newQueryCmd(opts, "complete", "List completions at a position"),
		newQueryCmd(opts, "hover", "Describe the element at a position"),
		newQueryCmd(opts, "signature", "Show the signature being called at a position"),
		newSymbolsCmd(opts),
		newModulesCmd(),
	)
	return rootCmd
}

// setup loads the config file, applies flags over it and installs the
// logger.
func (o *options) setup(cmd *cobra.Command) error {
	o.config = defaultConfig
	if o.configFile != "" {
		if err := loadConfig(o.configFile, &o.config); err != nil {
			return err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("rpc") {
		o.config.RPC = o.rpc
	}
	if flags.Changed("from") {
		o.config.From = o.from
	}
	if flags.Changed("abi-dir") {
		o.config.ABIDir = o.abiDir
	}
	if flags.Changed("verbosity") || o.config.Verbosity == "" {
		o.config.Verbosity = o.verbosity
	}
	if err := o.config.validate(); err != nil {
		return &CLIError{Message: "invalid configuration", Details: err.Error()}
	}

	useColor := ShouldUseColor(o.noColor)
	setColor(useColor)
	level, err := parseLevel(o.config.Verbosity)
	if err != nil {
		return err
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(cmd.ErrOrStderr(), level, useColor)))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	}
	return 0, &CLIError{Message: fmt.Sprintf("unknown verbosity %q", s), Hint: "use trace, debug, info, warn or error"}
}

// readScript reads FILE, or stdin when FILE is "-".
func readScript(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error opening file %s: %w", file, err)
	}
	return src, nil
}
