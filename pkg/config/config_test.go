package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_DottedPaths(t *testing.T) {
	cfg := config.New(map[string]any{
		"A": map[string]any{
			"B": map[string]any{"C": 3},
			"L": []any{"x", map[string]any{"Y": true}},
		},
	})

	v, ok := cfg.Lookup("A.B.C")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = cfg.Lookup("A.L.1.Y")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = cfg.Lookup("A.B.Z")
	assert.False(t, ok)
	_, ok = cfg.Lookup("A.L.7")
	assert.False(t, ok)
	assert.False(t, config.Empty().Exists("A"))
}

func TestNew_IsolatedFromInput(t *testing.T) {
	input := map[string]any{"A": map[string]any{"B": 1}}
	cfg := config.New(input)
	input["A"].(map[string]any)["B"] = 2

	v, _ := cfg.Lookup("A.B")
	assert.Equal(t, 1, v)

	raw := cfg.Raw()
	raw["A"].(map[string]any)["B"] = 3
	v, _ = cfg.Lookup("A.B")
	assert.Equal(t, 1, v)
}

func TestNew_NormalizesTypedMaps(t *testing.T) {
	cfg := config.New(map[string]any{
		"A": map[string]string{"B": "x"},
		"L": []string{"p", "q"},
	})

	v, ok := cfg.Lookup("A.B")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = cfg.Lookup("L.1")
	require.True(t, ok)
	assert.Equal(t, "q", v)
}

func TestResolve_Templates(t *testing.T) {
	cfg := config.New(map[string]any{
		"NAME":     "world",
		"GREETING": "hello {NAME}",
		"COUNT":    4,
		"ALIAS":    "{COUNT}",
		"NESTED":   "{GREETING}!",
		"ESCAPED":  "{{NAME}}",
		"TREE":     map[string]any{"X": "{NAME}", "Y": []any{"{COUNT}"}},
	})

	tests := []struct {
		path string
		want any
	}{
		{"GREETING", "hello world"},
		{"ALIAS", 4},
		{"NESTED", "hello world!"},
		{"ESCAPED", "{NAME}"},
		{"TREE", map[string]any{"X": "world", "Y": []any{4}}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := cfg.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_MissingReference(t *testing.T) {
	cfg := config.New(map[string]any{"A": "{B}"})

	_, err := cfg.Resolve("A")
	require.Error(t, err)
	var missing *config.MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "B", missing.Path)
	assert.ErrorIs(t, err, config.ErrMissingKey)

	_, err = cfg.Resolve("Z")
	assert.ErrorIs(t, err, config.ErrMissingKey)
}

func TestResolve_CycleDetection(t *testing.T) {
	cfg := config.New(map[string]any{
		"A":    "{B}",
		"B":    "x{C}",
		"C":    "{A}",
		"SELF": map[string]any{"X": "{SELF}"},
	})

	_, err := cfg.Resolve("A")
	var cycle *config.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycle.Chain)

	_, err = cfg.Resolve("SELF")
	assert.ErrorIs(t, err, config.ErrCycle)
}

func TestResolve_RepeatedReferenceIsNotACycle(t *testing.T) {
	cfg := config.New(map[string]any{
		"A": "x",
		"B": "{A}-{A}",
	})

	got, err := cfg.Resolve("B")
	require.NoError(t, err)
	assert.Equal(t, "x-x", got)
}

func TestReferences(t *testing.T) {
	cfg := config.New(map[string]any{
		"A": "{B} and {C}",
		"B": "{D}",
		"C": 1,
		"D": "leaf",
	})

	value, _ := cfg.Lookup("A")
	refs, err := cfg.References(value)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, refs)

	_, err = config.Empty().References("{MISSING}")
	assert.ErrorIs(t, err, config.ErrMissingKey)

	refs, err = config.Empty().ExplainReferences("{MISSING} {ALSO}")
	require.NoError(t, err)
	assert.Equal(t, []string{"ALSO", "MISSING"}, refs)
}

func TestInterpolateWith_Params(t *testing.T) {
	cfg := config.New(map[string]any{"A": "a"})

	got, err := cfg.InterpolateWith("{A}-{:p:}", map[string]any{"p": 7})
	require.NoError(t, err)
	assert.Equal(t, "a-7", got)

	_, err = cfg.Interpolate("{:p:}")
	assert.ErrorIs(t, err, config.ErrMissingKey)
}

func TestTemplateKeys(t *testing.T) {
	assert.Equal(t, []string{"A.B", ":x:", "C"}, config.TemplateKeys("{A.B} {:x:} {C} {A.B} {{D}} {unclosed"))
	assert.Empty(t, config.TemplateKeys("plain"))
	assert.True(t, config.IsParam(":x:"))
	assert.False(t, config.IsParam("x"))
}

func TestSetAndOverlay(t *testing.T) {
	base := config.New(map[string]any{"A": map[string]any{"X": 1, "Y": 2}})

	updated := base.Set("A.Z.W", "new")
	assert.False(t, base.Exists("A.Z.W"))
	v, _ := updated.Lookup("A.Z.W")
	assert.Equal(t, "new", v)

	merged := base.Overlay(config.New(map[string]any{"A": map[string]any{"Y": 20}, "B": true}))
	x, _ := merged.Lookup("A.X")
	y, _ := merged.Lookup("A.Y")
	assert.Equal(t, 1, x)
	assert.Equal(t, 20, y)
	assert.True(t, merged.Exists("B"))
	assert.Equal(t, []string{"A", "B"}, merged.Keys())

	y, _ = base.Lookup("A.Y")
	assert.Equal(t, 2, y)
}

func TestParseAndLoad(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.yaml")
	second := filepath.Join(dir, "override.json")
	require.NoError(t, os.WriteFile(first, []byte("A:\n  X: 1\n  Y: hello\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte(`{"A": {"Y": "{A.X}"}}`), 0644))

	cfg, err := config.Load(first, second)
	require.NoError(t, err)

	y, err := cfg.Resolve("A.Y")
	require.NoError(t, err)
	assert.Equal(t, 1, y)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Parse([]byte("A: [unterminated"))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	type server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}
	cfg := config.New(map[string]any{
		"HOST":   "localhost",
		"SERVER": map[string]any{"host": "{HOST}", "port": "8080"},
	})

	var s server
	require.NoError(t, cfg.Decode("SERVER", &s))
	assert.Equal(t, server{Host: "localhost", Port: 8080}, s)

	assert.Error(t, cfg.Decode("NOPE", &s))
}
