package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nurpe/bonus-agreements/internal/auth"
	"github.com/nurpe/bonus-agreements/internal/backend"
	"github.com/nurpe/bonus-agreements/internal/catalog"
	"github.com/nurpe/bonus-agreements/internal/config"
	"github.com/nurpe/bonus-agreements/internal/db"
	"github.com/nurpe/bonus-agreements/internal/excel"
	httphandler "github.com/nurpe/bonus-agreements/internal/http"
	"github.com/nurpe/bonus-agreements/internal/http/middleware"
	"github.com/nurpe/bonus-agreements/internal/logger"
	"github.com/nurpe/bonus-agreements/internal/pdf"
	"github.com/nurpe/bonus-agreements/internal/repository"
	"github.com/nurpe/bonus-agreements/internal/service"
	"github.com/nurpe/bonus-agreements/internal/session"
)

const sessionPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init session store")
	}

	cache := newRedis(ctx, cfg, log)
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	catalogProvider := catalog.NewProvider(client, cache, cfg.Catalog.CacheTTL, log)
	agreementService := service.NewAgreementService(client, catalogProvider, cfg.Agreements.LockCalculated, log)

	gate := session.NewGate(store, client, auth.NewParser(cfg.Session.Secret), session.Config{
		TTL:            cfg.Session.TTL,
		VerifyInterval: cfg.Session.VerifyInterval,
	}, log)
	if _, err := gate.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restore sessions")
	}

	pdfGenerator, err := pdf.NewGenerator(cfg.PDF.FontPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init pdf generator")
	}

	cookies := middleware.Cookies{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}
	handler := httphandler.NewHandler(
		agreementService,
		catalogProvider,
		gate,
		httphandler.Exports{Register: excel.NewGenerator(), Card: pdfGenerator},
		cookies,
		log,
	)
	authMiddleware := middleware.Auth(gate, cookies, handler.ResolveFailure)
	router, err := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterConfig{
		Environment: cfg.Environment,
		CORSOrigins: cfg.CORSOrigins,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Str("backend", cfg.Backend.URL).Msg("starting agreements console")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// newSessionStore keeps sessions in postgres when DB_DSN is set and in
// memory otherwise.
func newSessionStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (session.Store, error) {
	if cfg.DB.DSN == "" {
		log.Info().Msg("DB_DSN is not set, sessions are kept in memory")
		return session.NewMemoryStore(), nil
	}

	database, err := db.New(cfg, log)
	if err != nil {
		return nil, err
	}
	repo := repository.NewSessionRepository(database)
	go purgeExpiredSessions(ctx, repo, log)
	return repo, nil
}

func purgeExpiredSessions(ctx context.Context, repo *repository.SessionRepository, log zerolog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := repo.DeleteExpired(ctx, now)
			if err != nil {
				log.Warn().Err(err).Msg("expired session purge failed")
				continue
			}
			if removed > 0 {
				log.Info().Int64("removed", removed).Msg("expired sessions purged")
			}
		}
	}
}

// newRedis returns nil when no address is configured or the server does
// not answer; the catalog is then fetched on every load.
func newRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, catalog cache disabled")
		_ = client.Close()
		return nil
	}
	return client
}
