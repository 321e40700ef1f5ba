package models

// SessionState enumerates authentication states
type SessionState int

const (
	Anonymous SessionState = iota
	AuthenticatedUnverified
	AuthenticatedVerified
)

func (s SessionState) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case AuthenticatedUnverified:
		return "authenticated_unverified"
	case AuthenticatedVerified:
		return "authenticated_verified"
	default:
		return ""
	}
}

// Session is the gate's view of the current user.
type Session struct {
	State  SessionState
	UserID string // empty when Anonymous
}

// UserMetadata is the profile metadata attached to an identity at sign-up.
type UserMetadata struct {
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ProviderSession is an active identity-provider session.
type ProviderSession struct {
	UserID        string
	Email         string
	EmailVerified bool
	Metadata      UserMetadata
}

// AuthEvent names a session change emitted by the identity provider.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedUp       AuthEvent = "SIGNED_UP"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// SessionEvent is a single notification from the identity provider. Session is nil when no session is active.
type SessionEvent struct {
	Event   AuthEvent
	Session *ProviderSession
}
