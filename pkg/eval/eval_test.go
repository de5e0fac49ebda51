package eval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub answers every operation with fixed results.
type stub struct {
	value any
	err   error
	keys  domain.KeySet
}

func (s stub) Evaluate(context.Context, config.Config) (any, error) { return s.value, s.err }
func (s stub) Validate(context.Context, config.Config) error         { return s.err }
func (s stub) Keys(context.Context, config.Config) (domain.KeySet, error) {
	return s.keys, s.err
}
func (s stub) Explain(context.Context, config.Config) (domain.Explanation, error) {
	return domain.Explained(s.keys), s.err
}
func (s stub) String() string { return "stub" }

func TestDefaultHandlersCallTheNode(t *testing.T) {
	ctx := context.Background()
	n := stub{value: 42, keys: domain.NewKeySet("A")}

	v, err := eval.Evaluate(ctx, n, config.Empty())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	assert.NoError(t, eval.Validate(ctx, n, config.Empty()))

	keys, err := eval.Keys(ctx, n, config.Empty())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keys.Sorted())

	e, err := eval.Explain(ctx, n, config.Empty())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, e.Keys.Sorted())
}

func TestValidate_ReportsEvaluationFailuresAsInvalid(t *testing.T) {
	n := stub{err: &domain.KeyNotFoundError{Key: "A", Source: "stub"}}
	err := eval.Validate(context.Background(), n, config.Empty())
	assert.ErrorIs(t, err, domain.ErrValidation)

	other := errors.New("disk on fire")
	err = eval.Validate(context.Background(), stub{err: other}, config.Empty())
	assert.ErrorIs(t, err, other)
}

func TestOverrides(t *testing.T) {
	n := stub{value: "real"}
	ctx, exit := runtime.Scope(context.Background(), runtime.Handlers{
		eval.KindEvaluate: func(ctx context.Context, req runtime.Request) (any, error) {
			return "intercepted " + req.(eval.EvaluateRequest).Node.String(), nil
		},
		eval.KindKeys: func(context.Context, runtime.Request) (any, error) {
			return nil, nil
		},
		eval.KindExplain: func(context.Context, runtime.Request) (any, error) {
			return domain.NewKeySet("X"), nil
		},
	})
	defer exit()

	v, err := eval.Evaluate(ctx, n, config.Empty())
	require.NoError(t, err)
	assert.Equal(t, "intercepted stub", v)

	keys, err := eval.Keys(ctx, n, config.Empty())
	require.NoError(t, err)
	assert.Empty(t, keys)

	e, err := eval.Explain(ctx, n, config.Empty())
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, e.Keys.Sorted())
}

func TestHandlerResultTypesAreChecked(t *testing.T) {
	ctx, exit := runtime.Scope(context.Background(), runtime.Handlers{
		eval.KindKeys:    func(context.Context, runtime.Request) (any, error) { return "nope", nil },
		eval.KindExplain: func(context.Context, runtime.Request) (any, error) { return 7, nil },
	})
	defer exit()

	_, err := eval.Keys(ctx, stub{}, config.Empty())
	assert.ErrorContains(t, err, "returned string")
	_, err = eval.Explain(ctx, stub{}, config.Empty())
	assert.ErrorContains(t, err, "returned int")
}
