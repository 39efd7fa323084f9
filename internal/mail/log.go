package mail

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/gamegate/pkg/logger"
)

// LogTransport writes messages to the log instead of sending them. Bodies
// are included, so it is refused in production by the config layer.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(ctx context.Context, msg Message) error {
	t.logger.InfoContext(ctx, "email (log transport)",
		slog.String("to", logger.SanitizedEmail(msg.To)),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.TextBody))
	return nil
}
