package typecheck_test

import (
	"context"
	"testing"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/runtime"
	"github.com/aretw0/espalier/pkg/schema"
	"github.com/aretw0/espalier/pkg/typecheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTyped_DefaultAcceptsEverything(t *testing.T) {
	typed := typecheck.Typed(node.Option("N"), schema.Int())
	v, err := eval.Evaluate(context.Background(), typed, config.New(map[string]any{"N": "not a number"}))
	require.NoError(t, err)
	assert.Equal(t, "not a number", v)
}

func TestTyped_Enforce(t *testing.T) {
	typed := typecheck.Typed(node.Option("N"), schema.Int())
	ctx, exit := runtime.Scope(context.Background(), typecheck.Enforce())
	defer exit()

	v, err := eval.Evaluate(ctx, typed, config.New(map[string]any{"N": 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = eval.Evaluate(ctx, typed, config.New(map[string]any{"N": "x"}))
	var typeErr *typecheck.TypeValidationError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "int", typeErr.Type)
	assert.Equal(t, "x", typeErr.Value)
	assert.ErrorIs(t, err, domain.ErrEvaluation)
	assert.Contains(t, err.Error(), "is not of type int")
}

func TestTyped_CustomHandler(t *testing.T) {
	var seen []any
	ctx, exit := runtime.Scope(context.Background(), runtime.Handlers{
		typecheck.KindTypeValidation: func(_ context.Context, req runtime.Request) (any, error) {
			seen = append(seen, req.(typecheck.TypeValidationRequest).Value)
			return nil, nil
		},
	})
	defer exit()

	typed := typecheck.Typed(node.List(1, 2), schema.Slice(schema.Int()))
	_, err := eval.Evaluate(ctx, typed, config.Empty())
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{1, 2}}, seen)
}

func TestTyped_Delegates(t *testing.T) {
	ctx := context.Background()
	typed := typecheck.Typed(node.Option("N"), schema.Int())
	cfg := config.New(map[string]any{"N": 1})

	keys, err := eval.Keys(ctx, typed, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"N"}, keys.Sorted())
	assert.ErrorIs(t, eval.Validate(ctx, typed, config.Empty()), domain.ErrValidation)
	assert.Equal(t, "int", typed.Type().Name())
	assert.Contains(t, typed.String(), "Typed(")
}

func TestCheck_NilType(t *testing.T) {
	ctx, exit := runtime.Scope(context.Background(), typecheck.Enforce())
	defer exit()
	assert.NoError(t, typecheck.Check(ctx, "src", "anything", nil, config.Empty()))
}
