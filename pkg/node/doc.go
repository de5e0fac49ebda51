/*
Package node provides the primitive nodes evaluations are built from.

	greeting := node.Coalesce(
		node.Option("APP.GREETING"),
		node.MustTemplate("hello {APP.USER}", nil),
	)
	v, err := eval.Evaluate(ctx, greeting, cfg)

Leaves read the configuration (Option, Template, AllOptions) or hold a constant
(Value). Combinators apply functions (Apply, Call, Bind), pick the first
alternative that works (Coalesce), dispatch on a selector (Switch,
Overloaded), collect results (List, Map) or evaluate under a modified
configuration (WithOptions, WithDefaultOptions).

Plain Go values are accepted wherever a node is expected and wrapped with
Value; see Ensure.

Children are always reached through pkg/eval, so request handlers entered with
pkg/runtime observe every operation in the tree. List, Map and Call evaluate
their children concurrently unless SetParallel(false) has been called; each
worker runs on its own task inheriting the caller's registry.
*/
package node
