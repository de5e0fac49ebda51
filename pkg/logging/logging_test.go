package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/logging"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { logging.SetLogger(nil) })
	return &buf
}

func TestLog_DefaultHandler(t *testing.T) {
	buf := capture(t)
	ctx := context.Background()

	require.NoError(t, logging.Info(ctx, "pkg.data", "loading", config.Empty()))
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "msg=loading")
	assert.Contains(t, buf.String(), "logger=pkg.data")

	buf.Reset()
	require.NoError(t, logging.Warn(ctx, "x", "quiet", config.New(map[string]any{
		"ESPALIER": map[string]any{"LOGGING": map[string]any{"DISABLED": true}},
	})))
	assert.Empty(t, buf.String())
}

func TestLog_DisabledScope(t *testing.T) {
	buf := capture(t)
	ctx, exit := runtime.Scope(context.Background(), logging.Disabled())
	require.NoError(t, logging.Error(ctx, "x", "dropped", config.Empty()))
	exit()
	assert.Empty(t, buf.String())

	require.NoError(t, logging.Debug(context.Background(), "x", "kept", config.Empty()))
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestLogged_Order(t *testing.T) {
	var events []string
	inner := node.Call(func() string {
		events = append(events, "evaluate")
		return "v"
	})

	ctx, exit := runtime.Scope(context.Background(), runtime.Handlers{
		logging.KindLog: func(_ context.Context, req runtime.Request) (any, error) {
			events = append(events, "log:"+req.(logging.LogRequest).Msg)
			return nil, nil
		},
	})
	defer exit()

	v, err := eval.Evaluate(ctx, logging.Logged(inner, slog.LevelInfo, "n", "before"), config.Empty())
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = eval.Evaluate(ctx, logging.Logged(inner, slog.LevelInfo, "n", "after", logging.LogAfter()), config.Empty())
	require.NoError(t, err)

	assert.Equal(t, []string{"log:before", "evaluate", "evaluate", "log:after"}, events)
}

func TestLogged_Delegates(t *testing.T) {
	ctx := context.Background()
	l := logging.Logged(node.Option("A"), slog.LevelDebug, "n", "m", logging.LogAfter())
	cfg := config.New(map[string]any{"A": 1})

	keys, err := eval.Keys(ctx, l, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keys.Sorted())
	assert.NoError(t, eval.Validate(ctx, l, cfg))
	assert.Error(t, eval.Validate(ctx, l, config.Empty()))
	assert.Contains(t, l.String(), "after")
}
