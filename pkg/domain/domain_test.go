package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySet(t *testing.T) {
	ks := domain.NewKeySet("B", "A")
	ks.Add("C", "A")

	assert.Equal(t, 3, ks.Len())
	assert.True(t, ks.Contains("C"))
	assert.Equal(t, []string{"A", "B", "C"}, ks.Sorted())
	assert.Equal(t, "{A, B, C}", ks.String())

	union := domain.NewKeySet("A").Union(domain.NewKeySet("Z"), nil)
	assert.Equal(t, []string{"A", "Z"}, union.Sorted())
	assert.Equal(t, []string{"B", "C"}, ks.Without(domain.NewKeySet("A")).Sorted())

	data, err := json.Marshal(ks)
	require.NoError(t, err)
	assert.JSONEq(t, `["A","B","C"]`, string(data))

	var decoded domain.KeySet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ks, decoded)
}

func TestExplanation_Merge(t *testing.T) {
	a := domain.Explained(domain.NewKeySet("A"))
	b := domain.Explained(domain.NewKeySet("B"))
	bad := domain.Unexplained("upstream failed", "Bind(x)")

	merged := a.Merge(b)
	require.True(t, merged.Sufficient())
	assert.NoError(t, merged.Err())
	assert.Equal(t, []string{"A", "B"}, merged.Keys.Sorted())

	merged = a.Merge(bad)
	assert.False(t, merged.Sufficient())
	assert.ErrorIs(t, merged.Err(), domain.ErrEvaluation)
	assert.Contains(t, merged.Err().Error(), "upstream failed")

	assert.NotNil(t, domain.Explained(nil).Keys)
}

func TestErrorClasses(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
	}{
		{"evaluation", &domain.EvaluationError{Msg: "bad", Source: "n", Err: cause}},
		{"key not found", &domain.KeyNotFoundError{Key: "A", Source: "Option(A)"}},
		{"cycle", &domain.CyclicTemplateError{Chain: []string{"A", "A"}}},
		{"dispatch", &domain.DispatchError{Value: "Z", Valid: []any{"Y", "X"}}},
		{"insufficient", &domain.InsufficientInformationError{Reason: "r", Source: "s"}},
		{"domain", &domain.DomainError{Key: "A", Value: 3}},
		{"exhausted", &domain.CacheExhaustedError{Attempts: 3, Err: domain.ErrInvalidated}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, domain.ErrEvaluation)
			assert.NotErrorIs(t, tt.err, domain.ErrValidation)

			invalid := domain.Invalid(tt.err)
			assert.ErrorIs(t, invalid, domain.ErrValidation)
			assert.ErrorIs(t, invalid, tt.err)
			assert.Equal(t, invalid, domain.Invalid(invalid))
		})
	}
}

func TestInvalid_PassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, domain.Invalid(nil))

	other := errors.New("disk on fire")
	assert.Equal(t, other, domain.Invalid(other))
}

func TestDispatchError_Message(t *testing.T) {
	err := &domain.DispatchError{Value: "Z", Valid: []any{"Y", "X"}}
	assert.Equal(t, "evaluated to Z, but must be one of X, Y", err.Error())

	failed := &domain.DispatchError{Valid: []any{1, 2}, Source: "Switch", Err: errors.New("no selector")}
	assert.Equal(t, "Switch: evaluated to {NONE}, but must be one of 1, 2: no selector", failed.Error())
}

func TestFromConfig(t *testing.T) {
	_, err := config.New(map[string]any{"A": "{B}"}).Resolve("A")
	translated := domain.FromConfig(err, "Option(A)")

	var missing *domain.KeyNotFoundError
	require.ErrorAs(t, translated, &missing)
	assert.Equal(t, "B", missing.Key)
	assert.True(t, domain.IsMissingKey(translated))

	_, err = config.New(map[string]any{"A": "{A}"}).Resolve("A")
	translated = domain.FromConfig(err, "Option(A)")
	var cycle *domain.CyclicTemplateError
	require.ErrorAs(t, translated, &cycle)
	assert.ErrorIs(t, translated, config.ErrCycle)

	wrapped := domain.FromConfig(fmt.Errorf("decode: %w", errors.New("x")), "n")
	assert.ErrorIs(t, wrapped, domain.ErrEvaluation)
	assert.NoError(t, domain.FromConfig(nil, "n"))
}
