package espalier

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/aretw0/espalier/internal/compiler"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/cache"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/runtime"
	"github.com/spf13/afero"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// Engine is the high-level entry point: a compiled graph plus the base
// configuration and request handlers every operation runs with.
type Engine struct {
	graph    *compiler.Graph
	base     config.Config
	handlers runtime.Handlers
	logger   *slog.Logger

	fs         afero.Fs
	compilerOp []compiler.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithFs sets the filesystem graphs are read from. Defaults to the OS.
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) {
		e.fs = fs
	}
}

// WithStore sets the store backing nodes declared with cache: true.
func WithStore(s ports.Store) Option {
	return func(e *Engine) {
		e.compilerOp = append(e.compilerOp, compiler.WithStore(s))
	}
}

// WithCacheOptions configures every cached node.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(e *Engine) {
		e.compilerOp = append(e.compilerOp, compiler.WithCacheOptions(opts...))
	}
}

// WithRegistry sets the functions call nodes may use.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.compilerOp = append(e.compilerOp, compiler.WithRegistry(r))
	}
}

// WithConfig sets the base configuration. Per-call configurations are
// overlaid on it.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.base = cfg
	}
}

// WithHandlers installs request handlers around every operation.
func WithHandlers(h runtime.Handlers) Option {
	return func(e *Engine) {
		e.handlers = h
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func newEngine(opts []Option) *Engine {
	e := &Engine{
		base:   config.Empty(),
		logger: logging.NewNop(),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) compiler() *compiler.Compiler {
	opts := append([]compiler.Option{compiler.WithLogger(e.logger)}, e.compilerOp...)
	return compiler.New(opts...)
}

// New loads the graph document at path.
func New(path string, opts ...Option) (*Engine, error) {
	e := newEngine(opts)
	g, err := e.compiler().Load(e.fs, path)
	if err != nil {
		return nil, err
	}
	e.graph = g
	e.logger.Info("graph loaded", "path", path, "nodes", len(g.Names()))
	return e, nil
}

// FromBytes compiles a graph document held in memory.
func FromBytes(data []byte, opts ...Option) (*Engine, error) {
	e := newEngine(opts)
	g, err := e.compiler().CompileBytes(data)
	if err != nil {
		return nil, err
	}
	e.graph = g
	return e, nil
}

// Graph returns the compiled graph.
func (e *Engine) Graph() *compiler.Graph {
	return e.graph
}

// Config returns the base configuration.
func (e *Engine) Config() config.Config {
	return e.base
}

func (e *Engine) prepare(ctx context.Context, name string, cfg config.Config) (context.Context, func(), domain.Node, config.Config, error) {
	n, err := e.graph.Resolve(name)
	if err != nil {
		return nil, nil, nil, config.Config{}, err
	}
	merged := e.base.Overlay(cfg)
	if len(e.handlers) == 0 {
		return ctx, func() {}, n, merged, nil
	}
	ctx, exit := runtime.Scope(ctx, e.handlers)
	return ctx, exit, n, merged, nil
}

// Evaluate evaluates the named node, or the root when name is empty.
func (e *Engine) Evaluate(ctx context.Context, name string, cfg config.Config) (any, error) {
	ctx, exit, n, cfg, err := e.prepare(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	defer exit()
	return eval.Evaluate(ctx, n, cfg)
}

// Validate checks that the named node could be evaluated under cfg.
func (e *Engine) Validate(ctx context.Context, name string, cfg config.Config) error {
	ctx, exit, n, cfg, err := e.prepare(ctx, name, cfg)
	if err != nil {
		return err
	}
	defer exit()
	return eval.Validate(ctx, n, cfg)
}

// Keys returns the configuration paths the named node reads under cfg.
func (e *Engine) Keys(ctx context.Context, name string, cfg config.Config) ([]string, error) {
	ctx, exit, n, cfg, err := e.prepare(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	defer exit()
	keys, err := eval.Keys(ctx, n, cfg)
	if err != nil {
		return nil, err
	}
	return keys.Sorted(), nil
}

// Explain reports the paths the named node needs, or why they cannot be
// determined from cfg.
func (e *Engine) Explain(ctx context.Context, name string, cfg config.Config) (domain.Explanation, error) {
	ctx, exit, n, cfg, err := e.prepare(ctx, name, cfg)
	if err != nil {
		return domain.Explanation{}, err
	}
	defer exit()
	return eval.Explain(ctx, n, cfg)
}

func (e *Engine) String() string {
	return fmt.Sprintf("Engine(%d nodes)", len(e.graph.Names()))
}
