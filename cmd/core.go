package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/library"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/repositories"
	"github.com/desertthunder/ytplay/internal/services"
	"github.com/desertthunder/ytplay/internal/session"
	"github.com/desertthunder/ytplay/internal/shared"
)

// core is the session, library and catalog stack for one command invocation.
type core struct {
	db            *sql.DB
	auth          *services.AuthService
	authenticator *session.Authenticator
	gate          *session.Gate
	store         *library.Store
	catalog       *services.CatalogService
	logger        *log.Logger

	events <-chan models.SessionEvent
	cancel context.CancelFunc
}

// openCore opens the database, restores the saved session and applies it to the gate,
// so the library is synced before the command runs.
func (r *Runner) openCore(ctx context.Context) (*core, error) {
	cfg := r.config

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	gate := session.NewGate(r.logger)
	store := library.NewStore(repositories.NewLibraryBackend(db), gate, cfg.Library.Timeout, r.logger)
	gate.SetSyncer(store)

	auth := services.NewAuthService(cfg.Auth, cfg.Server, r.httpClient, r.logger)
	if err := auth.Restore(); err != nil {
		r.logger.Warn("ignoring saved session", "error", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	c := &core{
		db:            db,
		auth:          auth,
		authenticator: session.NewAuthenticator(auth, cfg.Auth.SignUpCooldown, r.logger, session.WithCooldownStore(auth)),
		gate:          gate,
		store:         store,
		catalog:       services.NewCatalogService(cfg.Catalog.BaseURL, r.httpClient),
		logger:        r.logger,
		events:        auth.Subscribe(subCtx),
		cancel:        cancel,
	}

	if err := c.settle(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// settle applies the next session event to the gate.
func (c *core) settle(ctx context.Context) error {
	select {
	case ev, ok := <-c.events:
		if !ok {
			return fmt.Errorf("session stream closed")
		}
		c.logger.Debug("session event", "event", ev.Event)
		return c.gate.Handle(ctx, ev)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *core) Close() error {
	c.cancel()
	return c.db.Close()
}

func openDatabase(cfg shared.DatabaseConfig) (*sql.DB, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
