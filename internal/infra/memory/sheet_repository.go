package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"propsheet-service/internal/domain"
)

// SheetLoader fetches a sheet snapshot from a backing store.
type SheetLoader interface {
	LoadSheet(ctx context.Context, sheetID string) (domain.SheetSnapshot, error)
}

// SheetRepository caches snapshots with a TTL and coalesces concurrent loads of one sheet.
// A zero TTL disables caching, so every call reads a fresh snapshot.
type SheetRepository struct {
	loader SheetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSheet
}

type cachedSheet struct {
	snapshot  domain.SheetSnapshot
	expiresAt time.Time
}

func NewSheetRepository(loader SheetLoader, ttl time.Duration) *SheetRepository {
	return &SheetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSheet),
	}
}

func (r *SheetRepository) GetSheet(ctx context.Context, sheetID string) (domain.SheetSnapshot, error) {
	if snapshot, ok := r.cached(sheetID); ok {
		return snapshot, nil
	}

	result, err, _ := r.sf.Do(sheetID, func() (interface{}, error) {
		if snapshot, ok := r.cached(sheetID); ok {
			return snapshot, nil
		}

		snapshot, err := r.loader.LoadSheet(ctx, sheetID)
		if err != nil {
			return domain.SheetSnapshot{}, err
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.mu.Lock()
			r.cache[sheetID] = cachedSheet{snapshot: snapshot, expiresAt: r.clock().Add(ttl)}
			r.mu.Unlock()
		}
		return snapshot, nil
	})
	if err != nil {
		return domain.SheetSnapshot{}, err
	}
	return result.(domain.SheetSnapshot), nil
}

// Invalidate drops a cached snapshot, e.g. after a proposition is graded.
func (r *SheetRepository) Invalidate(sheetID string) {
	r.mu.Lock()
	delete(r.cache, sheetID)
	r.mu.Unlock()
}

func (r *SheetRepository) cached(sheetID string) (domain.SheetSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[sheetID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.SheetSnapshot{}, false
	}
	return entry.snapshot, true
}

func (r *SheetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticSheetLoader is a loader backed by an in-memory map (tests and demos).
type StaticSheetLoader struct {
	mu     sync.RWMutex
	sheets map[string]domain.SheetSnapshot
}

func NewStaticSheetLoader(sheets map[string]domain.SheetSnapshot) *StaticSheetLoader {
	if sheets == nil {
		sheets = make(map[string]domain.SheetSnapshot)
	}
	return &StaticSheetLoader{sheets: sheets}
}

func (l *StaticSheetLoader) LoadSheet(_ context.Context, sheetID string) (domain.SheetSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if sheet, ok := l.sheets[sheetID]; ok {
		return sheet, nil
	}
	return domain.SheetSnapshot{}, domain.ErrSheetNotFound
}

// Put replaces a sheet snapshot.
func (l *StaticSheetLoader) Put(snapshot domain.SheetSnapshot) {
	l.mu.Lock()
	l.sheets[snapshot.SheetID] = snapshot
	l.mu.Unlock()
}
