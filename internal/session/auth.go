package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
	"golang.org/x/time/rate"
)

// SignUpRequest is the sign-up form input.
//
// ConfirmPassword is checked only when set.
type SignUpRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	Username        string
	AvatarURL       string
}

// Validate checks the request before anything is sent to the provider.
func (r SignUpRequest) Validate() error {
	if err := validateCredentials(r.Email, r.Password); err != nil {
		return err
	}
	if r.ConfirmPassword != "" && r.ConfirmPassword != r.Password {
		return fmt.Errorf("%w: password mismatch", shared.ErrValidation)
	}
	return nil
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return fmt.Errorf("%w: email is required", shared.ErrValidation)
	case !strings.Contains(email, "@"):
		return fmt.Errorf("%w: invalid email %q", shared.ErrValidation, email)
	case password == "":
		return fmt.Errorf("%w: password is required", shared.ErrValidation)
	}
	return nil
}

// CooldownError is returned when a sign-up is attempted before the cooldown has elapsed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: retry in %s", shared.ErrSignUpCooldown, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return shared.ErrSignUpCooldown
}

// CooldownStore keeps the sign-up cooldown deadline between runs. A zero time means none is saved.
type CooldownStore interface {
	LoadCooldown() (time.Time, error)
	SaveCooldown(until time.Time) error
}

// Authenticator forwards credential operations to a [Provider].
//
// After a successful sign-up, further sign-ups are blocked for the cooldown.
type Authenticator struct {
	provider Provider
	cooldown time.Duration
	limiter  *rate.Limiter
	store    CooldownStore
	now      func() time.Time
	logger   *log.Logger
	mu       sync.Mutex
}

// AuthenticatorOption configures an [Authenticator].
type AuthenticatorOption func(*Authenticator)

// WithClock replaces the clock used for the sign-up cooldown.
func WithClock(now func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) { a.now = now }
}

// WithCooldownStore restores a saved cooldown deadline from s and records new ones in it.
func WithCooldownStore(s CooldownStore) AuthenticatorOption {
	return func(a *Authenticator) { a.store = s }
}

// NewAuthenticator creates an [Authenticator]. A non-positive cooldown disables it.
func NewAuthenticator(p Provider, cooldown time.Duration, logger *log.Logger, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		provider: p,
		cooldown: cooldown,
		now:      time.Now,
		logger:   shared.WithLogger(logger, "component", "auth"),
	}
	if cooldown > 0 {
		a.limiter = rate.NewLimiter(rate.Every(cooldown), 1)
	}
	for _, opt := range opts {
		opt(a)
	}
	a.restoreCooldown()
	return a
}

// restoreCooldown drains the limiter so that the next token arrives at the saved deadline.
func (a *Authenticator) restoreCooldown() {
	if a.store == nil || a.limiter == nil {
		return
	}

	until, err := a.store.LoadCooldown()
	if err != nil {
		a.logger.Warn("ignoring saved sign-up cooldown", "error", err)
		return
	}

	now := a.now()
	if !until.After(now) {
		return
	}
	if latest := now.Add(a.cooldown); until.After(latest) {
		until = latest
	}
	a.limiter.ReserveN(until.Add(-a.cooldown), 1)
}

// SignUp validates the request, checks the cooldown and registers the identity with the provider.
//
// The cooldown starts only when the provider accepts the sign-up.
func (a *Authenticator) SignUp(ctx context.Context, req SignUpRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	var reservation *rate.Reservation
	if a.limiter != nil {
		reservation = a.limiter.ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)
			return &CooldownError{Remaining: delay}
		}
	}

	meta := models.UserMetadata{Username: strings.TrimSpace(req.Username), AvatarURL: strings.TrimSpace(req.AvatarURL)}
	if err := a.provider.SignUp(ctx, strings.TrimSpace(req.Email), req.Password, meta); err != nil {
		if reservation != nil {
			reservation.CancelAt(now)
		}
		a.logger.Warn("sign up failed", "error", err)
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	if a.store != nil && a.limiter != nil {
		if err := a.store.SaveCooldown(now.Add(a.cooldown)); err != nil {
			a.logger.Warn("failed to save sign-up cooldown", "error", err)
		}
	}

	a.logger.Info("signed up", "email", req.Email)
	return nil
}

// CooldownRemaining returns how long until sign-up is allowed again, or 0.
func (a *Authenticator) CooldownRemaining() time.Duration {
	if a.limiter == nil {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tokens := a.limiter.TokensAt(a.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(a.cooldown))
}

// SignIn signs in with email and password.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	if err := a.provider.SignInWithPassword(ctx, strings.TrimSpace(email), password); err != nil {
		a.logger.Warn("sign in failed", "error", err)
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return nil
}

// SignInWithOAuth signs in through the named OAuth provider.
func (a *Authenticator) SignInWithOAuth(ctx context.Context, provider string) error {
	if strings.TrimSpace(provider) == "" {
		return fmt.Errorf("%w: oauth provider is required", shared.ErrValidation)
	}

	if err := a.provider.SignInWithOAuth(ctx, provider); err != nil {
		a.logger.Warn("oauth sign in failed", "provider", provider, "error", err)
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return nil
}

// SignOut ends the current session.
func (a *Authenticator) SignOut(ctx context.Context) error {
	if err := a.provider.SignOut(ctx); err != nil {
		a.logger.Warn("sign out failed", "error", err)
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return nil
}
