// Package notification defines the outbound notification contract shared by
// the application services. Implementations are fire-and-report: a failure
// is returned for logging but must never block a workflow.
package notification

import "context"

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type SMS struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type Push struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type Gateway interface {
	SendEmail(ctx context.Context, msg Email) error
	SendSMS(ctx context.Context, msg SMS) error
	SendPush(ctx context.Context, msg Push) error
}
