package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePipeline EventType = "pipeline"
	EventTypeStep     EventType = "step"
	EventTypeLLM      EventType = "llm"
	EventTypeCost     EventType = "cost"
	EventTypeFallback EventType = "fallback"
	EventTypeSafety   EventType = "safety"
)

// Options configures the logger.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	LLMLogPath string // optional JSONL sink for llm events
}

// Logger handles structured logging.
type Logger struct {
	z   *zap.Logger
	llm *zap.Logger
}

// NewLogger builds a zap-backed logger. LLM events are additionally appended
// to opts.LLMLogPath when set.
func NewLogger(opts Options) (*Logger, error) {
	var cfg zap.Config
	if opts.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := zap.InfoLevel
	if opts.Level != "" {
		if err := lvl.Set(opts.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	l := &Logger{z: z, llm: z}
	if opts.LLMLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LLMLogPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, _, err := zap.Open(opts.LLMLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open llm log: %w", err)
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			f,
			zap.DebugLevel,
		)
		l.llm = zap.New(zapcore.NewTee(z.Core(), fileCore))
	}
	return l, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	z := zap.NewNop()
	return &Logger{z: z, llm: z}
}

// FromZap wraps an existing zap logger, e.g. one built by zaptest.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{z: z, llm: z}
}

// Zap exposes the underlying logger for ad-hoc fields.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	_ = l.llm.Sync()
	return l.z.Sync()
}

func (l *Logger) event(t EventType, runID string) []zap.Field {
	fields := []zap.Field{zap.String("type", string(t))}
	if runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	return fields
}

// Helper methods for common events

func (l *Logger) LogPipeline(runID, msg string, fields ...zap.Field) {
	l.z.Info(msg, append(l.event(EventTypePipeline, runID), fields...)...)
}

func (l *Logger) LogStep(runID, step string, duration time.Duration, confidence float64) {
	l.z.Info("step completed", append(l.event(EventTypeStep, runID),
		zap.String("step", step),
		zap.Duration("duration", duration),
		zap.Float64("confidence", confidence),
	)...)
}

// LogFallback records a step degrading to its deterministic default.
func (l *Logger) LogFallback(runID, step, reason string) {
	l.z.Warn("step fell back to default output", append(l.event(EventTypeFallback, runID),
		zap.String("step", step),
		zap.String("reason", reason),
	)...)
}

func (l *Logger) LogSafety(runID, stage string, blocked bool, reason string, violations []string) {
	fields := append(l.event(EventTypeSafety, runID),
		zap.String("stage", stage),
		zap.Bool("blocked", blocked),
		zap.Strings("tone_violations", violations),
	)
	if reason != "" {
		fields = append(fields, zap.String("reason", reason))
	}
	if blocked {
		l.z.Warn("safety gate blocked content", fields...)
		return
	}
	l.z.Info("safety gate passed", fields...)
}

func (l *Logger) LogCost(model string, promptTokens, completionTokens int) {
	l.z.Debug("token usage", append(l.event(EventTypeCost, ""),
		zap.String("model", model),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens),
		zap.Int("total_tokens", promptTokens+completionTokens),
	)...)
}

// LogLLM records one provider call attempt.
func (l *Logger) LogLLM(op, model string, attempt int, latency time.Duration, err error) {
	fields := append(l.event(EventTypeLLM, ""),
		zap.String("op", op),
		zap.String("model", model),
		zap.Int("attempt", attempt),
		zap.Duration("latency", latency),
	)
	if err != nil {
		l.llm.Warn("llm call failed", append(fields, zap.Error(err))...)
		return
	}
	l.llm.Info("llm call", fields...)
}
