package notify

import (
	"context"
	"log/slog"
)

// LogSender writes alerts to the structured log. It is always registered so
// every alert leaves a trace even when no external channel is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With(slog.String("component", "alerts"))}
}

func (l *LogSender) Name() string { return "log" }

func (l *LogSender) Send(ctx context.Context, title, message string) error {
	l.logger.InfoContext(ctx, title, slog.String("detail", message))
	return nil
}
