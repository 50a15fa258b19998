// Package logging builds the process logger and logs instrumentation events.
package logging

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
	"github.com/hanpama/inkgraph/internal/reqid"
)

// New returns a logger writing to stderr. format is "json" or "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return newLogger(lvl, format, zapcore.Lock(os.Stderr))
}

func newLogger(lvl zapcore.Level, format string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch format {
	case "json", "":
		enc = zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	return zap.New(zapcore.NewCore(enc, out, lvl), zap.AddCaller()), nil
}

func withRequest(ctx context.Context, l *zap.Logger) *zap.Logger {
	if rid, ok := reqid.FromContext(ctx); ok {
		return l.With(zap.String("request_id", rid))
	}
	return l
}

// Subscribe logs the events published on bus with l.
func Subscribe(bus *eventbus.Bus, l *zap.Logger) (unsubscribe func()) {
	offs := []func(){
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.HTTPFinish) {
			withRequest(ctx, l).Info("http request",
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Int("operations", e.Operations),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.GraphQLFinish) {
			fields := []zap.Field{
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Duration("duration", e.Duration),
			}
			if len(e.Errors) > 0 {
				withRequest(ctx, l).Warn("graphql operation", append(fields, zap.Errors("errors", e.Errors))...)
				return
			}
			withRequest(ctx, l).Debug("graphql operation", fields...)
		}),
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.LoaderBatch) {
			withRequest(ctx, l).Debug("loader batch",
				zap.String("loader", e.Loader),
				zap.Int("keys", e.Keys),
				zap.Duration("duration", e.Duration),
				zap.Error(e.Err),
			)
		}),
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.StoreQuery) {
			fields := []zap.Field{
				zap.String("backend", e.Backend),
				zap.String("collection", e.Collection),
				zap.String("op", e.Op),
				zap.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				withRequest(ctx, l).Warn("store query failed", append(fields, zap.Error(e.Err))...)
				return
			}
			withRequest(ctx, l).Debug("store query", fields...)
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
