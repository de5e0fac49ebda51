// Package compiler builds node trees from graph documents.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/cache"
	"github.com/aretw0/espalier/pkg/domain"
	espalierlog "github.com/aretw0/espalier/pkg/logging"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/schema"
	"github.com/aretw0/espalier/pkg/typecheck"
	"github.com/spf13/afero"
)

var (
	// ErrNodeNotFound is returned for references to undeclared nodes.
	ErrNodeNotFound = errors.New("node not found")
	// ErrReferenceCycle is returned when nodes reference each other in a loop.
	ErrReferenceCycle = errors.New("reference cycle")
)

// Compiler turns documents into graphs.
type Compiler struct {
	registry  *registry.Registry
	store     ports.Store
	cacheOpts []cache.Option
	logger    *slog.Logger
}

// Option configures the Compiler.
type Option func(*Compiler)

// WithRegistry sets the functions available to call nodes. Defaults to
// registry.Builtins().
func WithRegistry(r *registry.Registry) Option {
	return func(c *Compiler) {
		c.registry = r
	}
}

// WithStore sets the store used by nodes with cache enabled. Defaults to a
// fresh in-memory store per compiler.
func WithStore(s ports.Store) Option {
	return func(c *Compiler) {
		c.store = s
	}
}

// WithCacheOptions passes opts to every cached node.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(c *Compiler) {
		c.cacheOpts = append(c.cacheOpts, opts...)
	}
}

// WithLogger configures a logger for the Compiler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

func New(opts ...Option) *Compiler {
	c := &Compiler{
		registry: registry.Builtins(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}
	return c
}

// Load reads and compiles the document at path on fs.
func (c *Compiler) Load(fs afero.Fs, path string) (*Graph, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph %s: %w", path, err)
	}
	g, err := c.CompileBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// CompileBytes parses and compiles a document.
func (c *Compiler) CompileBytes(data []byte) (*Graph, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return c.Compile(doc)
}

// Compile builds every node of doc. References share the referenced node, so
// a node reached through several paths is one node.
func (c *Compiler) Compile(doc *Document) (*Graph, error) {
	b := &build{
		c:          c,
		doc:        doc,
		graph:      newGraph(doc.Root),
		inProgress: map[string]bool{},
	}
	names := make([]string, 0, len(doc.Nodes))
	for name := range doc.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := b.named(name, nil); err != nil {
			return nil, err
		}
	}
	if doc.Root != "" {
		if _, ok := b.graph.nodes[doc.Root]; !ok {
			return nil, fmt.Errorf("root %q: %w", doc.Root, ErrNodeNotFound)
		}
	}
	c.logger.Debug("graph compiled", "nodes", len(names), "root", doc.Root)
	return b.graph, nil
}

type build struct {
	c          *Compiler
	doc        *Document
	graph      *Graph
	inProgress map[string]bool

	// current is the stack of named nodes being compiled; label names the
	// dispatch branch being compiled inside the top one.
	current []string
	label   string
}

func (b *build) named(name string, chain []string) (domain.Node, error) {
	if n, ok := b.graph.nodes[name]; ok {
		return n, nil
	}
	raw, ok := b.doc.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("reference %q: %w", name, ErrNodeNotFound)
	}
	chain = append(chain, name)
	if b.inProgress[name] {
		return nil, fmt.Errorf("%w: %s", ErrReferenceCycle, strings.Join(chain, " -> "))
	}
	b.inProgress[name] = true
	b.current = append(b.current, name)
	label := b.label
	b.label = ""
	defer func() {
		delete(b.inProgress, name)
		b.current = b.current[:len(b.current)-1]
		b.label = label
	}()

	spec, err := DecodeSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", name, err)
	}
	n, err := b.compile(spec, chain)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", name, err)
	}
	b.graph.add(name, n, spec)
	return n, nil
}

func (b *build) spec(raw any, chain []string) (domain.Node, error) {
	spec, err := DecodeSpec(raw)
	if err != nil {
		return nil, err
	}
	return b.compile(spec, chain)
}

func (b *build) compile(spec *NodeSpec, chain []string) (domain.Node, error) {
	n, err := b.kind(spec, chain)
	if err != nil {
		return nil, err
	}
	return b.wrap(spec, n)
}

func (b *build) all(raws []any, chain []string) ([]any, error) {
	out := make([]any, len(raws))
	for i, raw := range raws {
		n, err := b.spec(raw, chain)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func (b *build) entries(raws map[string]any, chain []string) (map[string]domain.Node, error) {
	out := make(map[string]domain.Node, len(raws))
	for k, raw := range raws {
		n, err := b.spec(raw, chain)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func (b *build) kind(spec *NodeSpec, chain []string) (domain.Node, error) {
	switch spec.Kind {
	case "ref":
		if len(b.current) > 0 {
			b.graph.link(b.current[len(b.current)-1], spec.Ref, b.label)
		}
		return b.named(spec.Ref, chain)

	case "value":
		return node.Value(spec.Value), nil

	case "option":
		var opts []node.OptionOpt
		if spec.Default != nil {
			opts = append(opts, node.OptionDefault(spec.Default))
		}
		if spec.OneOf != nil {
			opts = append(opts, node.OptionDomain(spec.OneOf))
		}
		if spec.Doc != "" {
			opts = append(opts, node.OptionDoc(spec.Doc))
		}
		return node.Option(spec.Option, opts...), nil

	case "template":
		params, err := b.entries(spec.Params, chain)
		if err != nil {
			return nil, err
		}
		asAny := make(map[string]any, len(params))
		for k, v := range params {
			asAny[k] = v
		}
		return node.Template(spec.Template, asAny)

	case "call":
		fn, ok := b.c.registry.Lookup(spec.Call)
		if !ok {
			return nil, fmt.Errorf("function %q is not registered", spec.Call)
		}
		args, err := b.all(spec.Args, chain)
		if err != nil {
			return nil, err
		}
		return node.Call(fn, args...).Named(spec.Call), nil

	case "switch", "overloaded":
		return b.dispatch(spec, chain)

	case "coalesce":
		members, err := b.all(spec.Coalesce, chain)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, errors.New("coalesce needs at least one member")
		}
		return node.Coalesce(members[0], members[1:]...), nil

	case "list":
		items, err := b.all(spec.List, chain)
		if err != nil {
			return nil, err
		}
		return node.List(items...), nil

	case "map":
		entries, err := b.entries(spec.Map, chain)
		if err != nil {
			return nil, err
		}
		asAny := make(map[string]any, len(entries))
		for k, v := range entries {
			asAny[k] = v
		}
		return node.Map(asAny), nil

	case "with_options":
		inner, err := b.spec(spec.WithOptions, chain)
		if err != nil {
			return nil, err
		}
		return node.WithOptions(inner, spec.Options, spec.Force), nil

	case "all_options":
		return node.AllOptions(), nil
	}
	return nil, fmt.Errorf("unknown node kind %q", spec.Kind)
}

func (b *build) dispatch(spec *NodeSpec, chain []string) (domain.Node, error) {
	rawSelector := spec.Switch
	if spec.Kind == "overloaded" {
		rawSelector = spec.Overloaded
	}

	outer := b.label
	defer func() { b.label = outer }()

	var selector any
	if path, ok := rawSelector.(string); ok {
		selector = path
	} else {
		b.label = "selector"
		n, err := b.spec(rawSelector, chain)
		if err != nil {
			return nil, fmt.Errorf("selector: %w", err)
		}
		selector = n
	}

	var opts []node.SwitchOpt
	if spec.Default != nil {
		b.label = "default"
		def, err := b.spec(spec.Default, chain)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		opts = append(opts, node.SwitchDefault(def))
	}

	cases := make(map[string]domain.Node, len(spec.Cases))
	for k, raw := range spec.Cases {
		b.label = k
		n, err := b.spec(raw, chain)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", k, err)
		}
		cases[k] = n
	}

	if spec.Kind == "switch" {
		table := make(map[any]any, len(cases))
		for k, v := range cases {
			table[k] = v
		}
		return node.Switch(selector, table, opts...), nil
	}

	o := node.Overloaded(selector, opts...)
	for k, v := range cases {
		if err := o.Register(k, v); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// wrap applies the type, log and cache decorators, innermost first.
func (b *build) wrap(spec *NodeSpec, n domain.Node) (domain.Node, error) {
	if spec.Type != "" {
		t, err := schema.ParseType(spec.Type)
		if err != nil {
			return nil, err
		}
		n = typecheck.Typed(n, t)
	}
	if spec.Log != "" {
		level := slog.LevelInfo
		if spec.LogLevel != "" {
			if err := level.UnmarshalText([]byte(spec.LogLevel)); err != nil {
				return nil, fmt.Errorf("log_level: %w", err)
			}
		}
		var opts []espalierlog.LoggedOpt
		if spec.LogAfter {
			opts = append(opts, espalierlog.LogAfter())
		}
		n = espalierlog.Logged(n, level, "espalier.graph", spec.Log, opts...)
	}
	if spec.Cache {
		n = cache.New(n, b.c.store, b.c.cacheOpts...)
	}
	return n, nil
}
