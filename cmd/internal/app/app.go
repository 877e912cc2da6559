// Package app wires the Quill server runtime: config, logging, stores, and
// the HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/chat"
	"quill/cmd/internal/chatapi"
	"quill/cmd/internal/invite"
	"quill/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the Quill server runtime.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	api *chatapi.Handler
}

// stores bundles the domain persistence backends one mode provides.
type stores struct {
	invites  invite.Store
	sessions session.Store
	chats    chat.Store
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	keys, err := token.KeysFromEnv()
	if err != nil {
		return nil, err
	}

	st, dbPool, dbEnabled, backends, err := newStore(context.Background(), cfg, keys, log)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewService(sessCfg, keys, backends.invites, backends.sessions, log)
	if err != nil {
		return nil, err
	}

	chats, err := chat.NewService(backends.chats, log)
	if err != nil {
		return nil, err
	}

	apiCfg := chatapi.LoadConfigFromEnv()
	sharer := chat.NewSharer(keys.ShareSign, apiCfg.ShareTTL)

	api, err := chatapi.NewHandler(log, apiCfg, sessions, chats, sharer)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		api:       api,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.api)

	var handler http.Handler = mux
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := a.store.Close(closeCtx); cerr != nil {
		a.log.Error("store.close.fail", "err", cerr)
	}

	if err != nil {
		return err
	}
	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory dev
// store.
func newStore(ctx context.Context, cfg Config, keys token.Keys, log Logger) (Store, *pgxpool.Pool, bool, stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		inv := invite.NewMemoryStore()
		seedDevInvite(inv, keys, log)
		return nopStore{}, nil, false, stores{
			invites:  inv,
			sessions: session.NewMemoryStore(inv),
			chats:    chat.NewMemoryStore(inv),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, stores{}, err
	}

	log.Info("db.enabled.postgres_store")

	invites, err := invite.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, stores{}, err
	}
	sessions, err := session.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, stores{}, err
	}
	chats, err := chat.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, stores{}, err
	}

	// The app owns the pool lifecycle; the stores only borrow it.
	return dbStore{pool: pool}, pool, true, stores{
		invites:  invites,
		sessions: sessions,
		chats:    chats,
	}, nil
}

// seedDevInvite registers a development invite code so the memory mode is
// usable out of the box.
func seedDevInvite(inv *invite.MemoryStore, keys token.Keys, log Logger) {
	code := EnvString("QUILL_DEV_INVITE_CODE", "")
	if code == "" {
		return
	}
	quota := int64(EnvInt("QUILL_DEV_INVITE_QUOTA", 100000))

	now := time.Now().UTC()
	inv.Add(invite.Invite{
		ID:         "inv_dev",
		CodeHash:   token.HashHMACSHA256Hex(code, keys.InviteHash),
		Label:      "development",
		Status:     invite.StatusActive,
		TokenQuota: quota,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	log.Info("dev.invite.seeded", "quota", quota)
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
