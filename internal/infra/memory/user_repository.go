package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"propsheet-service/internal/domain"
)

// UserRepository keeps users in process, keyed by phone.
type UserRepository struct {
	now     func() time.Time
	mu      sync.Mutex
	byPhone map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{now: time.Now, byPhone: make(map[string]domain.User)}
}

func (r *UserRepository) FindByPhone(_ context.Context, phone string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byPhone[phone]; ok {
		return user, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) FindOrCreateByPhone(_ context.Context, phone, displayName string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byPhone[phone]; ok {
		return user, nil
	}
	user := domain.User{
		ID:          uuid.NewString(),
		Phone:       phone,
		DisplayName: displayName,
		CreatedAt:   r.now().UTC(),
	}
	r.byPhone[phone] = user
	return user, nil
}

func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPhone)
}
