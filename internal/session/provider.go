package session

import (
	"context"

	"github.com/desertthunder/ytplay/internal/models"
)

// Provider is the identity provider the client authenticates against.
//
// Session changes are never returned from the sign-in calls; they arrive on the Subscribe stream.
type Provider interface {
	// Subscribe emits the current session as [models.EventInitialSession], then every change.
	// The channel is closed when ctx ends.
	Subscribe(ctx context.Context) <-chan models.SessionEvent
	SignUp(ctx context.Context, email, password string, meta models.UserMetadata) error
	SignInWithPassword(ctx context.Context, email, password string) error
	SignInWithOAuth(ctx context.Context, provider string) error
	SignOut(ctx context.Context) error
}
