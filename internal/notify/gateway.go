package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a message to its audience. Implementations are
// best-effort; callers must treat failures as non-fatal.
type Notifier interface {
	NotifyRole(ctx context.Context, role string, centroID int64, title, body, link string) error
	NotifyUser(ctx context.Context, userID int64, title, body, link string) error
}

// LogNotifier writes notifications to the log. Stands in for the real
// delivery channel until one is integrated.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyRole(_ context.Context, role string, centroID int64, title, body, link string) error {
	n.logger.Info("notify role",
		slog.String("role", role),
		slog.Int64("centro_id", centroID),
		slog.String("title", title),
		slog.String("body", body),
		slog.String("link", link),
	)
	return nil
}

func (n *LogNotifier) NotifyUser(_ context.Context, userID int64, title, body, link string) error {
	n.logger.Info("notify user",
		slog.Int64("user_id", userID),
		slog.String("title", title),
		slog.String("body", body),
		slog.String("link", link),
	)
	return nil
}
