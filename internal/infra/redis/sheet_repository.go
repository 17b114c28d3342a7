package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"propsheet-service/internal/domain"
)

// SheetLoader fetches a sheet snapshot from a backing store.
type SheetLoader interface {
	LoadSheet(ctx context.Context, sheetID string) (domain.SheetSnapshot, error)
}

// SheetRepository shares sheet snapshots across instances through Redis and falls back to a
// loader on cache miss. Snapshots are stored as JSON: SET sheet:{sheetID}:snapshot {json} EX ttl.
type SheetRepository struct {
	client *redis.Client
	loader SheetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewSheetRepository(client *redis.Client, loader SheetLoader, ttl time.Duration) *SheetRepository {
	return &SheetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SheetRepository) GetSheet(ctx context.Context, sheetID string) (domain.SheetSnapshot, error) {
	if snapshot, ok := r.cached(ctx, sheetID); ok {
		return snapshot, nil
	}

	result, err, _ := r.sf.Do(sheetID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if snapshot, ok := r.cached(ctx, sheetID); ok {
			return snapshot, nil
		}

		snapshot, err := r.loader.LoadSheet(ctx, sheetID)
		if err != nil {
			return domain.SheetSnapshot{}, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			if raw, err := json.Marshal(snapshot); err == nil {
				// best-effort: a failed write only costs a reload
				_ = r.client.Set(ctx, r.key(sheetID), raw, ttl).Err()
			}
		}
		return snapshot, nil
	})
	if err != nil {
		return domain.SheetSnapshot{}, err
	}
	return result.(domain.SheetSnapshot), nil
}

// Invalidate drops the cached snapshot so the next read goes to the loader.
func (r *SheetRepository) Invalidate(ctx context.Context, sheetID string) error {
	return r.client.Del(ctx, r.key(sheetID)).Err()
}

func (r *SheetRepository) cached(ctx context.Context, sheetID string) (domain.SheetSnapshot, bool) {
	if r.ttl <= 0 {
		return domain.SheetSnapshot{}, false
	}
	raw, err := r.client.Get(ctx, r.key(sheetID)).Bytes()
	if err != nil {
		return domain.SheetSnapshot{}, false
	}
	var snapshot domain.SheetSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.SheetSnapshot{}, false
	}
	return snapshot, true
}

func (r *SheetRepository) key(sheetID string) string {
	return "sheet:" + sheetID + ":snapshot"
}

func (r *SheetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
