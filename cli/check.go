package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/langsvc"
)

func newCheckCmd(opts *options) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Report problems found without running the script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := newService(opts.config)
			file := args[0]
			if watch {
				return watchFile(cmd.Context(), file, func() {
					_, _ = checkFile(cmd, svc, file)
				})
			}
			errs, err := checkFile(cmd, svc, file)
			if err != nil {
				return err
			}
			if errs > 0 {
				return &CLIError{Message: fmt.Sprintf("%s has %d error(s)", file, errs)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-check the file whenever it changes")
	return cmd
}

func newService(cfg Config) *langsvc.Service {
	return langsvc.New(langsvc.Config{Registry: module.Global(), Logger: log.Root(), CacheSize: cfg.CacheSize})
}

// checkFile prints the diagnostics of file and returns how many are errors.
func checkFile(cmd *cobra.Command, svc *langsvc.Service, file string) (int, error) {
	src, err := readScript(cmd, file)
	if err != nil {
		return 0, err
	}
	diags := svc.Diagnostics(cmd.Context(), string(src))
	out := cmd.OutOrStdout()
	if len(diags) == 0 {
		_, _ = fmt.Fprintln(out, faint.Sprint("no problems found"))
		return 0, nil
	}
	DisplayDiagnostics(out, file, diags)
	errs := 0
	for _, d := range diags {
		if d.Severity == langsvc.SeverityError {
			errs++
		}
	}
	return errs, nil
}

// watchFile calls onChange once and then after every write to file, until
// ctx is done. The directory is watched so editors that replace the file on
// save keep triggering events.
func watchFile(ctx context.Context, file string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	log.Info("Watching for changes", "file", file)

	onChange()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug("File changed", "file", file, "op", ev.Op)
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", "err", err)
		}
	}
}
