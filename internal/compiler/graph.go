package compiler

import (
	"fmt"
	"sort"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/node"
)

// Info describes a declared node.
type Info struct {
	Name   string
	Kind   string
	Type   string
	Cached bool
	Logged bool
}

// Edge is a reference from one declared node to another. Label names the
// dispatch branch the reference sits in, if any.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is a compiled document.
type Graph struct {
	root       string
	nodes      map[string]domain.Node
	info       map[string]Info
	names      map[domain.Node]string
	edges      []Edge
	overloaded map[string]*node.OverloadedNode
}

func newGraph(root string) *Graph {
	return &Graph{
		root:       root,
		nodes:      map[string]domain.Node{},
		info:       map[string]Info{},
		names:      map[domain.Node]string{},
		overloaded: map[string]*node.OverloadedNode{},
	}
}

func (g *Graph) add(name string, n domain.Node, spec *NodeSpec) {
	g.nodes[name] = n
	g.info[name] = Info{
		Name:   name,
		Kind:   spec.Kind,
		Type:   spec.Type,
		Cached: spec.Cache,
		Logged: spec.Log != "",
	}
	if spec.Kind != "ref" {
		g.names[n] = name
	}
	if o, ok := n.(*node.OverloadedNode); ok {
		g.overloaded[name] = o
	}
}

func (g *Graph) link(from, to, label string) {
	g.edges = append(g.edges, Edge{From: from, To: to, Label: label})
}

// Node returns the node declared under name.
func (g *Graph) Node(name string) (domain.Node, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNodeNotFound)
	}
	return n, nil
}

// RootName returns the declared root, or "" when there is none.
func (g *Graph) RootName() string {
	return g.root
}

// Root returns the document's root node. With no root declared, a graph of
// a single node uses that node.
func (g *Graph) Root() (domain.Node, error) {
	if g.root != "" {
		return g.Node(g.root)
	}
	if len(g.nodes) == 1 {
		for _, n := range g.nodes {
			return n, nil
		}
	}
	return nil, fmt.Errorf("graph declares no root: %w", ErrNodeNotFound)
}

// Resolve returns the named node, or the root when name is empty.
func (g *Graph) Resolve(name string) (domain.Node, error) {
	if name == "" {
		return g.Root()
	}
	return g.Node(name)
}

// Overloaded returns the open dispatch node declared under name, so more
// implementations can be registered after compilation.
func (g *Graph) Overloaded(name string) (*node.OverloadedNode, bool) {
	o, ok := g.overloaded[name]
	return o, ok
}

// Names returns the declared node names in order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns what the document declared for name.
func (g *Graph) Describe(name string) (Info, bool) {
	info, ok := g.info[name]
	return info, ok
}

// NameOf returns the name n was declared under. Nodes declared as a plain
// reference to another name report the referenced name.
func (g *Graph) NameOf(n domain.Node) (string, bool) {
	name, ok := g.names[n]
	return name, ok
}

// Edges returns the references between declared nodes, sorted by source
// then target.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
