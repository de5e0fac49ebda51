package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarTypes(t *testing.T) {
	tests := []struct {
		typ     Type
		value   any
		wantErr bool
	}{
		{String(), "hello", false},
		{String(), 42, true},
		{String(), nil, true},
		{Int(), 42, false},
		{Int(), int64(42), false},
		{Int(), uint8(1), false},
		{Int(), 42.0, false},
		{Int(), 42.5, true},
		{Int(), "42", true},
		{Float(), 3.14, false},
		{Float(), 3, false},
		{Float(), "3.14", true},
		{Bool(), true, false},
		{Bool(), "true", true},
		{Any(), nil, false},
		{Any(), struct{}{}, false},
	}

	for _, tt := range tests {
		err := tt.typ.Validate(tt.value)
		assert.Equal(t, tt.wantErr, err != nil, "%s.Validate(%#v) = %v", tt.typ.Name(), tt.value, err)
	}
}

func TestContainerTypes(t *testing.T) {
	ints := Slice(Int())
	assert.NoError(t, ints.Validate([]any{1, 2.0}))
	assert.NoError(t, ints.Validate([3]int{1, 2, 3}))
	err := ints.Validate([]any{1, "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
	assert.Error(t, ints.Validate("nope"))

	m := Map(Bool())
	assert.NoError(t, m.Validate(map[string]any{"a": true}))
	assert.NoError(t, m.Validate(map[string]bool{"a": true}))
	err = m.Validate(map[string]any{"a": true, "b": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `key "b"`)
	assert.Error(t, m.Validate(map[int]bool{1: true}))

	obj := Object(Schema{"name": String()})
	assert.NoError(t, obj.Validate(map[string]any{"name": "x", "extra": 1}))
	assert.Error(t, obj.Validate(map[string]any{}))
	assert.Equal(t, "object{name: string}", obj.Name())
}

func TestCustomType(t *testing.T) {
	positive := Custom("positive", func(v any) error {
		if i, ok := v.(int); !ok || i <= 0 {
			return errors.New("must be a positive int")
		}
		return nil
	})
	assert.Equal(t, "positive", positive.Name())
	assert.NoError(t, positive.Validate(1))
	assert.Error(t, positive.Validate(-1))
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"string", "int", "float", "bool", "any", "[int]", "{string}", "[{[bool]}]"} {
		typ, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, typ.Name())
	}

	_, err := ParseType("[unknown]")
	assert.Error(t, err)
	_, err = ParseType("[]")
	assert.Error(t, err)
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	s := Schema{
		"api_key": String(),
		"retries": Int(),
		"tags":    Slice(String()),
	}

	assert.NoError(t, Validate(s, map[string]any{
		"api_key": "secret",
		"retries": 3,
		"tags":    []string{"prod"},
	}))
	assert.NoError(t, Validate(nil, map[string]any{"x": 1}))

	err := Validate(s, map[string]any{"retries": "three", "tags": []any{1}})
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	fields := FieldErrors(err)
	require.Len(t, fields, 3)
	assert.Equal(t, "api_key", fields[0].Key)
	assert.Equal(t, "required", fields[0].Reason)
	assert.Equal(t, "retries", fields[1].Key)
	assert.Equal(t, "tags", fields[2].Key)
}

func TestValidateFields(t *testing.T) {
	s := Schema{"a": Int(), "b": Int()}
	assert.NoError(t, ValidateFields(s, map[string]any{"a": 1}, "a"))

	fields := FieldErrors(ValidateFields(s, map[string]any{}, "a", "zzz"))
	require.Len(t, fields, 2)
	assert.Equal(t, "required", fields[0].Reason)
	assert.Equal(t, "not defined in schema", fields[1].Reason)
}

func TestSchema_JSON(t *testing.T) {
	s := Schema{"tags": Slice(String()), "n": Int()}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": "[string]", "n": "int"}`, string(data))

	var back Schema
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "[string]", back["tags"].Name())

	assert.Error(t, json.Unmarshal([]byte(`{"x": "nope"}`), &back))
}
