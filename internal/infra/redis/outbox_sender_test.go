package redis

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"propsheet-service/internal/sms"
)

func TestOutboxSenderQueuesMessages(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	sender := NewOutboxSender(newClient(mr), "")
	for _, body := range []string{"first", "second"} {
		if err := sender.Send(context.Background(), sms.Message{To: "+14165550100", Body: body}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	items, err := mr.List("sms:outbox")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 queued messages, got %d", len(items))
	}
	var oldest sms.Message
	if err := json.Unmarshal([]byte(items[len(items)-1]), &oldest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if oldest.Body != "first" || oldest.To != "+14165550100" {
		t.Fatalf("unexpected message %+v", oldest)
	}
}

func TestOutboxSenderReportsRedisFailure(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	if err := NewOutboxSender(client, "").Send(context.Background(), sms.Message{To: "+14165550100"}); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
