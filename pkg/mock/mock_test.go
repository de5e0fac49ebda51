package mock_test

import (
	"context"
	"testing"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/mock"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_SubstitutesAllOperations(t *testing.T) {
	dataset := node.Call(func(path string) string { return "real:" + path }, node.Option("PATH"))
	pipeline := node.Apply(dataset, func(s string) int { return len(s) })
	cfg := config.Empty()

	m := mock.New()
	m.Set(dataset, "fake")

	ctx, exit, err := m.Enter(context.Background())
	require.NoError(t, err)

	v, err := eval.Evaluate(ctx, pipeline, cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	assert.NoError(t, eval.Validate(ctx, pipeline, cfg))
	keys, err := eval.Keys(ctx, pipeline, cfg)
	require.NoError(t, err)
	assert.Empty(t, keys.Sorted())
	e, err := eval.Explain(ctx, pipeline, cfg)
	require.NoError(t, err)
	assert.Empty(t, e.Keys.Sorted())

	exit()

	_, err = eval.Evaluate(ctx, pipeline, cfg)
	assert.Error(t, err, "PATH is required once the mock is gone")
	keys, err = eval.Keys(context.Background(), pipeline, config.New(map[string]any{"PATH": "p"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"PATH"}, keys.Sorted())
}

func TestMock_NodeReplacement(t *testing.T) {
	target := node.Option("A")
	m := mock.New()
	m.Set(target, node.Option("B"))

	ctx, exit, err := m.Enter(context.Background())
	require.NoError(t, err)
	defer exit()

	v, err := eval.Evaluate(ctx, node.List(target), config.New(map[string]any{"B": 2}))
	require.NoError(t, err)
	assert.Equal(t, []any{2}, v)

	m.Unset(target)
	_, err = eval.Evaluate(ctx, target, config.New(map[string]any{"B": 2}))
	assert.Error(t, err)
}

func TestMock_EnterTwice(t *testing.T) {
	m := mock.New()
	ctx, exit, err := m.Enter(context.Background())
	require.NoError(t, err)

	_, _, err = m.Enter(ctx)
	assert.ErrorIs(t, err, mock.ErrAlreadyEntered)

	exit()
	_, exit, err = m.Enter(context.Background())
	require.NoError(t, err)
	exit()
}
