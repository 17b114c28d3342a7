package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"propsheet-service/internal/app"
	"propsheet-service/internal/config"
	"propsheet-service/internal/domain"
	"propsheet-service/internal/infra/memory"
	"propsheet-service/internal/infra/postgres"
	infraredis "propsheet-service/internal/infra/redis"
)

// backends holds the optional external connections named in the config.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
	}
	return b, nil
}

func (b *backends) close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func (b *backends) userRepository() app.UserRepository {
	if b.pool != nil {
		return postgres.NewUserRepository(b.pool)
	}
	slog.Warn("postgres not configured, users are kept in memory")
	return memory.NewUserRepository()
}

func (b *backends) sheetRepository(cfg config.Config) app.SheetRepository {
	var loader memory.SheetLoader = memory.NewStaticSheetLoader(sampleSheets())
	if b.pool != nil {
		loader = postgres.NewSheetLoader(b.pool)
	}

	ttl := config.TTLDuration(cfg.Sheets.TTL, 30*time.Second)
	if b.redis != nil {
		return infraredis.NewSheetRepository(b.redis, loader, ttl)
	}
	return memory.NewSheetRepository(loader, ttl)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// sampleSheets seeds the in-memory loader for demo runs without Postgres.
func sampleSheets() map[string]domain.SheetSnapshot {
	over, yes := "o1", "o3"
	return map[string]domain.SheetSnapshot{
		"demo": {
			SheetID: "demo",
			Propositions: []domain.Proposition{
				{ID: "p1", Prompt: "Total points over 44.5?", Options: []domain.Option{{ID: "o1", Label: "Over"}, {ID: "o2", Label: "Under"}}, AnswerID: &over},
				{ID: "p2", Prompt: "Coin toss lands heads?", Options: []domain.Option{{ID: "o3", Label: "Yes"}, {ID: "o4", Label: "No"}}, AnswerID: &yes},
				{ID: "p3", Prompt: "Overtime?", Options: []domain.Option{{ID: "o5", Label: "Yes"}, {ID: "o6", Label: "No"}}},
			},
			Submissions: []domain.Submission{
				{ID: "demo-1", Selections: []domain.Selection{{PropositionID: "p1", OptionID: "o1"}, {PropositionID: "p2", OptionID: "o3"}, {PropositionID: "p3", OptionID: "o6"}}},
				{ID: "demo-2", Selections: []domain.Selection{{PropositionID: "p1", OptionID: "o1"}, {PropositionID: "p2", OptionID: "o4"}}},
				{ID: "demo-3", Selections: []domain.Selection{{PropositionID: "p1", OptionID: "o2"}, {PropositionID: "p2", OptionID: "o3"}}},
			},
		},
	}
}
