// Package sms defines how outbound text messages leave the service.
package sms

import (
	"context"
	"log/slog"
)

// Message is one outbound text.
type Message struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. Development only.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "sms", "to", msg.To, "body", msg.Body)
	return nil
}
