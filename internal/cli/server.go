package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"propsheet-service/internal/app"
	"propsheet-service/internal/auth"
	"propsheet-service/internal/config"
	"propsheet-service/internal/domain"
	"propsheet-service/internal/infra/memory"
	infraredis "propsheet-service/internal/infra/redis"
	"propsheet-service/internal/session"
	"propsheet-service/internal/sms"
	transport "propsheet-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(cfg *config.Config) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *cfg, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, portFlag string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	store, err := newSessionStore(cfg, b)
	if err != nil {
		return err
	}

	identity := app.NewIdentityService(b.userRepository())
	notifier := app.NewLinkNotifier(newSMSSender(cfg, b, slog.Default()), cfg.SMS.AppName)

	magic, err := auth.NewMagicLinkStrategy(store, auth.MagicLinkOptions[domain.User]{
		CallbackPath:             cfg.MagicLink.CallbackPath,
		PublicURL:                cfg.MagicLink.PublicURL,
		Secret:                   cfg.MagicLink.Secret,
		LinkExpiration:           config.TTLDuration(cfg.MagicLink.Expiration, 30*time.Minute),
		ValidateSessionMagicLink: cfg.MagicLink.SameDevice,
		Send:                     notifier.Send,
		Verify:                   identity.VerifyMagicLink,
	})
	if err != nil {
		return fmt.Errorf("magic link strategy: %w", err)
	}
	phone, err := auth.NewPhoneStrategy(store, auth.PhoneOptions[domain.User]{Verify: identity.VerifyPhone})
	if err != nil {
		return fmt.Errorf("phone strategy: %w", err)
	}

	ranking := app.NewRankingService(b.sheetRepository(cfg))
	router := transport.NewRouter(transport.Handlers{
		Auth: transport.NewAuthHandler(magic, phone, store, transport.AuthRoutes{
			SentRedirect:    cfg.MagicLink.SentRedirect,
			SuccessRedirect: cfg.MagicLink.SuccessRedirect,
			FailureRedirect: cfg.MagicLink.FailureRedirect,
		}),
		Ranking:      transport.NewRankingHandler(ranking),
		Stream:       transport.NewLeaderboardStream(ranking, config.TTLDuration(cfg.Leaderboard.PollInterval, 5*time.Second)),
		CallbackPath: magic.Options().CallbackPath,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting prop sheet service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newSessionStore(cfg config.Config, b *backends) (session.Store, error) {
	cookie := session.DefaultCookieOptions()
	if cfg.Session.CookieName != "" {
		cookie.Name = cfg.Session.CookieName
	}
	cookie.MaxAge = config.TTLDuration(cfg.Session.MaxAge, cookie.MaxAge)
	cookie.Secure = cfg.Session.Secure

	codec, err := session.NewCodec(cfg.Session.Secret, cookie.MaxAge)
	if err != nil {
		return nil, err
	}

	switch cfg.Session.Store {
	case "", "cookie":
		return session.NewCookieStore(codec, cookie), nil
	case "server":
		if b.redis != nil {
			return session.NewServerStore(infraredis.NewSessionStore(b.redis), codec, cookie), nil
		}
		slog.Warn("redis not configured, server sessions are kept in memory")
		return session.NewServerStore(memory.NewSessionStore(), codec, cookie), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

func newSMSSender(cfg config.Config, b *backends, logger *slog.Logger) sms.Sender {
	if cfg.SMS.Sender == "redis" {
		if b.redis != nil {
			return infraredis.NewOutboxSender(b.redis, cfg.SMS.OutboxKey)
		}
		slog.Warn("sms.sender is redis but redis is not configured, logging messages instead")
	}
	return sms.NewLogSender(logger)
}
