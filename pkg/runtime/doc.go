/*
Package runtime implements request routing: the mechanism through which nodes
emit effects (evaluate a child, read a cache entry, log a message) without
knowing who will handle them.

A Request is a typed, immutable payload identified by its Kind. A Registry maps
kinds to Handlers and may delegate kinds it does not override to the registry
it was derived from. Process-wide defaults are installed with HandleByDefault.

# Tasks

Registries are scoped per task. A task is a logical thread of control,
identified by a TaskID carried in the context.Context. Each task has its own
stack of entered registries:

	ctx, exit := runtime.Scope(ctx, runtime.Handlers{logging.KindLog: quiet})
	defer exit()

A context without a task, or a task with an empty stack, resolves requests
against the process-wide defaults. New tasks never see their creator's
registries unless they explicitly Inherit them; Child does both steps at once
for goroutines spawned by composite nodes.

The task table is a plain map guarded by a single mutex.
*/
package runtime
