/*
Package espalier evaluates declarative computations against configuration.

A computation is a tree of nodes: options read paths from the configuration,
templates interpolate it, calls apply Go functions to the results of other
nodes, and switches pick a branch by the value of a selector. Every node can
evaluate itself, validate that it could be evaluated, report the keys it
reads, and explain which keys it would need.

Nodes never call each other directly. Each operation goes through a request
routed by the registry installed on the context, so callers can intercept
evaluation (caching, logging, type checks, mocks) without changing the tree.

# Usage

Graphs are written as YAML documents and compiled into nodes:

	root: dsn
	nodes:
	  host:
	    option: DB.HOST
	    default: localhost
	  dsn:
	    template: "postgres://{:host:}/{DB.NAME}"
	    params:
	      host: {ref: host}
	    cache: true

	eng, err := espalier.New("graph.yaml")
	if err != nil {
		log.Fatal(err)
	}
	v, err := eng.Evaluate(ctx, "", config.New(map[string]any{
		"DB": map[string]any{"NAME": "app"},
	}))

Nodes can also be built directly with package node and evaluated with
package eval.
*/
package espalier
