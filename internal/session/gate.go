// package session tracks authentication state and decides whether library mutations are allowed.
//
// [Gate] consumes identity provider events and drives library sync/reset through a [Syncer].
// [Authenticator] validates credential input and enforces the sign-up cooldown before calling the [Provider].
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Syncer loads or clears user-scoped state in response to session changes.
type Syncer interface {
	Sync(ctx context.Context, s models.ProviderSession) error
	Reset()
}

// Gate is the sole authority on the current session and on whether the library may be mutated.
type Gate struct {
	mu      sync.RWMutex
	session models.Session
	syncer  Syncer
	hub     *shared.Hub[models.Session]
	logger  *log.Logger
}

// NewGate creates an anonymous [Gate].
func NewGate(logger *log.Logger) *Gate {
	return &Gate{
		session: models.Session{State: models.Anonymous},
		hub:     shared.NewHub[models.Session](),
		logger:  shared.WithLogger(logger, "component", "session"),
	}
}

// SetSyncer attaches the component that is synced on verification and reset on loss of it.
func (g *Gate) SetSyncer(s Syncer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.syncer = s
}

// Handle applies a provider event.
//
// A nil session moves to Anonymous, an unverified session to AuthenticatedUnverified; both reset the syncer.
// A verified session moves to AuthenticatedVerified and syncs, resetting first when the user changed.
func (g *Gate) Handle(ctx context.Context, ev models.SessionEvent) error {
	next := models.Session{State: models.Anonymous}
	if ev.Session != nil {
		next.UserID = ev.Session.UserID
		next.State = models.AuthenticatedUnverified
		if ev.Session.EmailVerified {
			next.State = models.AuthenticatedVerified
		}
	}

	g.mu.Lock()
	prev := g.session
	g.session = next
	syncer := g.syncer
	g.mu.Unlock()

	g.logger.Debug("session event", "event", ev.Event, "from", prev.State, "to", next.State)
	if prev != next {
		g.hub.Publish(next)
	}

	if syncer == nil {
		return nil
	}

	if next.State != models.AuthenticatedVerified {
		syncer.Reset()
		return nil
	}

	if prev.State == models.AuthenticatedVerified && prev.UserID != next.UserID {
		syncer.Reset()
	}

	if err := syncer.Sync(ctx, *ev.Session); err != nil {
		return fmt.Errorf("library sync failed: %w", err)
	}
	return nil
}

// Run feeds every event from the provider's stream into [Gate.Handle] until the stream closes.
func (g *Gate) Run(ctx context.Context, p Provider) {
	for ev := range p.Subscribe(ctx) {
		if err := g.Handle(ctx, ev); err != nil {
			g.logger.Warn("session event handling failed", "event", ev.Event, "error", err)
		}
	}
}

// Session returns the current session.
func (g *Gate) Session() models.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// UserID returns the current session's user, or "" when anonymous.
func (g *Gate) UserID() string {
	return g.Session().UserID
}

// CanMutateLibrary is true only while the session is verified.
func (g *Gate) CanMutateLibrary() bool {
	return g.Authorize() == nil
}

// Authorize returns nil when verified, [shared.ErrVerificationRequired] when signed in but unverified
// and [shared.ErrAuthRequired] when anonymous.
func (g *Gate) Authorize() error {
	switch g.Session().State {
	case models.AuthenticatedVerified:
		return nil
	case models.AuthenticatedUnverified:
		return shared.ErrVerificationRequired
	default:
		return shared.ErrAuthRequired
	}
}

// Subscribe streams session changes.
func (g *Gate) Subscribe() (<-chan models.Session, func()) {
	return g.hub.Subscribe()
}
