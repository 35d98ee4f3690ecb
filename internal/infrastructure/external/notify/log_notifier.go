package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// LogNotifier writes alerts to the structured log. Station deployments
// without a messaging channel run with this notifier; the port lets a
// push or SMS notifier slot in later without touching callers.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notification entity.Notification) error {
	n.logger.Warn("Notification",
		zap.String("type", notification.Type),
		zap.String("subject_id", notification.SubjectID),
		zap.String("title", notification.Title),
		zap.String("message", notification.Message))
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
