package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"instagram-unfollower-bot/internal/config"

	"github.com/rs/zerolog"
)

// New builds the root logger. Levels: trace, debug, info, warn (or warning),
// error. Formats: json, console. Dev mode forces console output with callers.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	return newLogger(os.Stdout, cfg, dev)
}

func newLogger(out io.Writer, cfg config.LogConfig, dev bool) *zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	if dev || strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(out).With().Timestamp().Str("service", "unfollower-bot")
	if dev {
		ctx = ctx.Caller()
	}
	base := ctx.Logger()

	if cfg.Sampling && !dev {
		// 1 in 100 events below warn; warnings and errors always pass.
		base = base.Sample(zerolog.LevelSampler{
			TraceSampler: &zerolog.BasicSampler{N: 100},
			DebugSampler: &zerolog.BasicSampler{N: 100},
			InfoSampler:  &zerolog.BasicSampler{N: 100},
		})
	}
	return &base
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

type ctxKey int

const (
	keyTraceID ctxKey = iota
	keyTgID
	keyCycleID
)

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyTraceID, id)
}

func WithTgID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, keyTgID, id)
}

func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyCycleID, id)
}

// With returns base enriched with the ids carried by ctx.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	l := base.With()
	if v, ok := ctx.Value(keyTraceID).(string); ok {
		l = l.Str("trace_id", v)
	}
	if v, ok := ctx.Value(keyTgID).(int64); ok {
		l = l.Int64("tg_id", v)
	}
	if v, ok := ctx.Value(keyCycleID).(string); ok {
		l = l.Str("cycle_id", v)
	}
	logger := l.Logger()
	return &logger
}

// TraceDuration logs start and finish of name at trace level.
//
//	defer logging.TraceDuration(log, "Tracker.Detect")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		logger.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}

// Redact shortens secrets for logs unless dev is set.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}
