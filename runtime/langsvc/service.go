// Package langsvc answers editor queries over evml scripts: completions,
// hover, signature help, diagnostics and document symbols.
//
// Every query is a pure function of the script text, the cursor and the
// module instances cached by the eager engine. None of them needs a chain
// connection and none of them fails: malformed input produces empty or
// partial answers.
package langsvc

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/eager"
)

// Config configures a Service.
type Config struct {
	Registry  *module.Registry // defaults to module.Global()
	Clients   *chain.Clients
	Logger    log.Logger
	CacheSize int
}

// Service is safe for concurrent use.
type Service struct {
	engine *eager.Engine
	log    log.Logger
}

// New creates a service backed by its own eager engine.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	return &Service{
		engine: eager.New(eager.Config{
			Registry:  cfg.Registry,
			Clients:   cfg.Clients,
			Logger:    cfg.Logger,
			CacheSize: cfg.CacheSize,
		}),
		log: cfg.Logger,
	}
}

// analyze runs the eager engine for pos.
func (s *Service) analyze(ctx context.Context, text string, pos ast.Position) *eager.Result {
	return s.engine.Analyze(ctx, text, pos)
}

// guard turns a panic inside a query into an empty answer.
func (s *Service) guard(query string) {
	if r := recover(); r != nil {
		s.log.Debug("Language service query panicked", "query", query, "panic", r)
	}
}
