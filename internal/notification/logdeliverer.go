package notification

import (
	"context"
	"log/slog"
)

// LogDeliverer writes notifications to the log instead of a real provider.
// Used in development and as the default sink of the delivery worker until a
// provider integration is configured.
type LogDeliverer struct {
	log *slog.Logger
}

func NewLogDeliverer(log *slog.Logger) *LogDeliverer {
	return &LogDeliverer{log: log}
}

func (d *LogDeliverer) DeliverEmail(_ context.Context, msg Email) error {
	d.log.Info("email delivered", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (d *LogDeliverer) DeliverSMS(_ context.Context, msg SMS) error {
	d.log.Info("sms delivered", "to", msg.To)
	return nil
}

func (d *LogDeliverer) DeliverPush(_ context.Context, msg Push) error {
	d.log.Info("push delivered", "user_id", msg.UserID, "title", msg.Title)
	return nil
}
