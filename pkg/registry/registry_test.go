package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndExecute(t *testing.T) {
	ctx := context.Background()
	r := registry.NewRegistry()

	require.NoError(t, r.Register("double", func(n int) int { return n * 2 }))
	assert.Error(t, r.Register("bad", 42))
	assert.Error(t, r.Register("void", func() {}))

	v, err := r.Execute(ctx, "double", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = r.Execute(ctx, "missing")
	assert.EqualError(t, err, "function not found: missing")

	require.NoError(t, r.Register("double", func(n int) int { return n * 3 }))
	v, err = r.Execute(ctx, "double", 2)
	require.NoError(t, err)
	assert.Equal(t, 6, v, "last registration wins")
	assert.Equal(t, []string{"double"}, r.Names())
}

func TestBuiltins(t *testing.T) {
	ctx := context.Background()
	b := registry.Builtins()
	assert.Equal(t, []string{"concat", "join", "len", "lower", "sum", "trim", "upper", "uuid"}, b.Names())

	tests := []struct {
		name string
		args []any
		want any
	}{
		{"upper", []any{"abc"}, "ABC"},
		{"lower", []any{"ABC"}, "abc"},
		{"trim", []any{"  x "}, "x"},
		{"concat", []any{"a", 1, true}, "a1true"},
		{"join", []any{"-", "a", "b"}, "a-b"},
		{"sum", []any{1, 2.5, 3}, 6.5},
		{"len", []any{[]any{1, 2}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := b.Execute(ctx, tt.name, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	v, err := b.Execute(ctx, "uuid")
	require.NoError(t, err)
	_, err = uuid.Parse(v.(string))
	assert.NoError(t, err)

	_, err = b.Execute(ctx, "len", 3)
	assert.EqualError(t, err, "len: unsupported type int")

	_, err = b.Execute(ctx, "upper", 1)
	assert.ErrorIs(t, err, domain.ErrEvaluation, "argument conversion failures are evaluation errors")
}
