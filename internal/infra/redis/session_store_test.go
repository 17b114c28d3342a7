package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"propsheet-service/internal/session"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := NewSessionStore(client)
	codec, _ := session.NewCodec("secret", time.Hour)
	store := session.NewServerStore(backend, codec, session.CookieOptions{MaxAge: time.Minute})

	ctx := context.Background()
	sess, _ := store.Get(ctx, "")
	sess.Set("auth:phone", "+14165550100")
	setCookie, err := store.Commit(ctx, sess)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	key := "session:" + sess.ID()
	if !mr.Exists(key) {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	loaded, err := store.Get(ctx, session.CookieHeader(setCookie))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v, _ := loaded.Get("auth:phone"); v != "+14165550100" {
		t.Fatalf("expected phone from redis, got %q", v)
	}

	if _, err := store.Destroy(ctx, loaded); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected redis key to be removed")
	}
}
