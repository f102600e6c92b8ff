// Package notify delivers account emails (password resets, invitations).
// Production posts each message to a mail relay webhook; without one the
// message is written to the log.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the webhook sender when url is set.
func New(url string, log *zap.Logger) Sender {
	if url == "" {
		return LogSender{log: log}
	}
	return NewWebhookSender(url, 10*time.Second)
}

// ======================================================
// WEBHOOK
// ======================================================

type WebhookSender struct {
	client *resty.Client
	url    string
}

func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &WebhookSender{client: c, url: url}
}

func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify: relay answered %d", resp.StatusCode())
	}
	return nil
}

// ======================================================
// LOG
// ======================================================

// LogSender is for local setups with no relay. The body holds the link.
type LogSender struct {
	log *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
