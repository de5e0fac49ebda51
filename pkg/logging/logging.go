// Package logging issues side-channel log messages as routed requests.
//
// Nodes never write to a logger directly: they issue a LogRequest, whose
// default handler writes to the package logger (slog.Default unless SetLogger
// was called). Scopes can silence logging with Disabled, or capture it by
// overriding KindLog.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/node"
	"github.com/aretw0/espalier/pkg/runtime"
)

const KindLog runtime.Kind = "espalier.log"

// DisabledFlag is the configuration path that silences the default handler.
const DisabledFlag = "ESPALIER.LOGGING.DISABLED"

// LogRequest asks for Msg to be logged at Level by the logger called Name.
type LogRequest struct {
	Level  slog.Level
	Name   string
	Msg    string
	Config config.Config
}

func (LogRequest) Kind() runtime.Kind { return KindLog }

var (
	logger   atomic.Pointer[slog.Logger]
	disabled = node.Option(DisabledFlag, node.OptionDefault(false))
)

// SetLogger replaces the logger used by the default handler. Passing nil
// restores slog.Default().
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func current() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func init() {
	runtime.HandleByDefault(KindLog, func(ctx context.Context, req runtime.Request) (any, error) {
		r := req.(LogRequest)
		off, err := eval.Evaluate(ctx, disabled, r.Config)
		if err != nil {
			return nil, err
		}
		if b, _ := off.(bool); b {
			return nil, nil
		}
		current().Log(ctx, r.Level, r.Msg, "logger", r.Name)
		return nil, nil
	})
}

// Disabled returns overrides that drop every log request.
func Disabled() runtime.Handlers {
	return runtime.Handlers{
		KindLog: func(context.Context, runtime.Request) (any, error) {
			return nil, nil
		},
	}
}

// Log issues a LogRequest.
func Log(ctx context.Context, level slog.Level, name, msg string, cfg config.Config) error {
	_, err := runtime.Handle(ctx, LogRequest{Level: level, Name: name, Msg: msg, Config: cfg})
	return err
}

func Debug(ctx context.Context, name, msg string, cfg config.Config) error {
	return Log(ctx, slog.LevelDebug, name, msg, cfg)
}

func Info(ctx context.Context, name, msg string, cfg config.Config) error {
	return Log(ctx, slog.LevelInfo, name, msg, cfg)
}

func Warn(ctx context.Context, name, msg string, cfg config.Config) error {
	return Log(ctx, slog.LevelWarn, name, msg, cfg)
}

func Error(ctx context.Context, name, msg string, cfg config.Config) error {
	return Log(ctx, slog.LevelError, name, msg, cfg)
}

// LoggedNode logs a message around the evaluation of another node.
type LoggedNode struct {
	node     domain.Node
	level    slog.Level
	name     string
	msg      string
	logFirst bool
}

// LoggedOpt configures a LoggedNode.
type LoggedOpt func(*LoggedNode)

// LogAfter logs once the wrapped node evaluated successfully instead of
// before evaluating it.
func LogAfter() LoggedOpt {
	return func(l *LoggedNode) {
		l.logFirst = false
	}
}

// Logged wraps n so every evaluation logs msg.
func Logged(n any, level slog.Level, name, msg string, opts ...LoggedOpt) *LoggedNode {
	l := &LoggedNode{node: node.Ensure(n), level: level, name: name, msg: msg, logFirst: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LoggedNode) Evaluate(ctx context.Context, cfg config.Config) (any, error) {
	if l.logFirst {
		if err := Log(ctx, l.level, l.name, l.msg, cfg); err != nil {
			return nil, err
		}
		return eval.Evaluate(ctx, l.node, cfg)
	}

	v, err := eval.Evaluate(ctx, l.node, cfg)
	if err != nil {
		return nil, err
	}
	if err := Log(ctx, l.level, l.name, l.msg, cfg); err != nil {
		return nil, err
	}
	return v, nil
}

func (l *LoggedNode) Validate(ctx context.Context, cfg config.Config) error {
	return eval.Validate(ctx, l.node, cfg)
}

func (l *LoggedNode) Keys(ctx context.Context, cfg config.Config) (domain.KeySet, error) {
	return eval.Keys(ctx, l.node, cfg)
}

func (l *LoggedNode) Explain(ctx context.Context, cfg config.Config) (domain.Explanation, error) {
	return eval.Explain(ctx, l.node, cfg)
}

func (l *LoggedNode) String() string {
	if l.logFirst {
		return fmt.Sprintf("Logged(%s, %s, %q, %q)", l.node, l.level, l.name, l.msg)
	}
	return fmt.Sprintf("Logged(%s, %s, %q, %q, after)", l.node, l.level, l.name, l.msg)
}
