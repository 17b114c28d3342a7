package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"propsheet-service/internal/sms"
)

// OutboxSender queues messages on a Redis list for the SMS gateway worker to deliver.
// Messages are pushed with LPUSH and consumed with BRPOP, giving FIFO delivery.
type OutboxSender struct {
	client *redis.Client
	key    string
}

func NewOutboxSender(client *redis.Client, key string) *OutboxSender {
	if key == "" {
		key = "sms:outbox"
	}
	return &OutboxSender{client: client, key: key}
}

func (s *OutboxSender) Send(ctx context.Context, msg sms.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode sms: %w", err)
	}
	if err := s.client.LPush(ctx, s.key, raw).Err(); err != nil {
		return fmt.Errorf("queue sms: %w", err)
	}
	return nil
}
