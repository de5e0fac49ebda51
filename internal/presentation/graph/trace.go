package graph

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/internal/compiler"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/runtime"
)

// Trace evaluates name under cfg and records which declared nodes the
// evaluation reached, in first-visit order. Errors unwind innermost first,
// so Failed is the deepest declared node that failed. The evaluation error,
// if any, is returned along with the overlay.
func Trace(ctx context.Context, g *compiler.Graph, name string, cfg config.Config) (*Overlay, error) {
	n, err := g.Resolve(name)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	overlay := &Overlay{}
	seen := map[string]bool{}

	ctx, exit := runtime.Scope(ctx, runtime.Handlers{
		eval.KindEvaluate: func(ctx context.Context, req runtime.Request) (any, error) {
			target := req.(eval.EvaluateRequest).Node
			declared, ok := g.NameOf(target)
			if ok {
				mu.Lock()
				if !seen[declared] {
					seen[declared] = true
					overlay.Visited = append(overlay.Visited, declared)
				}
				mu.Unlock()
			}

			v, err := runtime.Current(ctx).Previous().Handle(ctx, req)
			if err != nil && ok {
				mu.Lock()
				if overlay.Failed == "" {
					overlay.Failed = declared
				}
				mu.Unlock()
			}
			return v, err
		},
	})
	defer exit()

	_, err = eval.Evaluate(ctx, n, cfg)
	return overlay, err
}
