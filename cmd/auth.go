package main

import (
	"context"
	"errors"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/session"
	"github.com/urfave/cli/v3"
)

// AuthSignUp registers an account. Accounts that need email confirmation stay unverified until
// the address is confirmed and the session refreshed.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	req := session.SignUpRequest{
		Email:           cmd.String("email"),
		Password:        cmd.String("password"),
		ConfirmPassword: cmd.String("confirm"),
		Username:        cmd.String("username"),
		AvatarURL:       cmd.String("avatar-url"),
	}

	if err := c.authenticator.SignUp(ctx, req); err != nil {
		var cooldown *session.CooldownError
		if errors.As(err, &cooldown) {
			r.logger.Warn("sign up is cooling down", "remaining", cooldown.Remaining)
		}
		return err
	}

	if err := c.settle(ctx); err != nil {
		return err
	}

	if c.gate.Session().State == models.AuthenticatedUnverified {
		return r.writePlain("✓ Signed up as %s\nConfirm your email address, then run `ytplay auth status --refresh`.\n", req.Email)
	}
	return r.writeSession(c)
}

// AuthLogin signs in with email and password.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.authenticator.SignIn(ctx, cmd.String("email"), cmd.String("password")); err != nil {
		return err
	}
	if err := c.settle(ctx); err != nil {
		return err
	}
	return r.writeSession(c)
}

// AuthOAuth signs in through the browser with a configured OAuth provider.
func (r *Runner) AuthOAuth(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	provider := cmd.String("provider")
	r.logger.Info("starting OAuth sign in", "provider", provider)

	if err := c.authenticator.SignInWithOAuth(ctx, provider); err != nil {
		return err
	}
	if err := c.settle(ctx); err != nil {
		return err
	}
	return r.writeSession(c)
}

// AuthLogout ends the session. The saved session is removed even when the API call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	signOutErr := c.authenticator.SignOut(ctx)
	if err := c.settle(ctx); err != nil {
		return err
	}
	if signOutErr != nil {
		r.logger.Warn("sign out request failed", "error", signOutErr)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus prints the current session, optionally refreshing the user first.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if cmd.Bool("refresh") && c.gate.Session().State != models.Anonymous {
		if err := c.auth.Refresh(ctx); err != nil {
			return err
		}
		if err := c.settle(ctx); err != nil {
			return err
		}
	}
	return r.writeSession(c)
}

func (r *Runner) writeSession(c *core) error {
	s := c.gate.Session()
	r.writePlainHeader("Session")
	r.writePlain("State: %s\n", s.State)

	ps := c.auth.Session()
	if ps == nil {
		return nil
	}
	r.writePlain("User: %s\n", ps.UserID)
	r.writePlain("Email: %s\n", ps.Email)

	if s.State == models.AuthenticatedVerified {
		snap := c.store.Snapshot()
		r.writePlain("Liked tracks: %d\n", len(snap.LikedTracks))
		r.writePlain("Playlists: %d\n", len(snap.Playlists))
	}
	return nil
}
