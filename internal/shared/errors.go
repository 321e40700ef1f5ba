package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Authentication errors
	ErrAuthFailed           = fmt.Errorf("authentication failed")
	ErrAuthRequired         = fmt.Errorf("sign in required")
	ErrVerificationRequired = fmt.Errorf("email verification required")
	ErrSignUpCooldown       = fmt.Errorf("sign up temporarily blocked")
	ErrTimeout              = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrValidation = fmt.Errorf("invalid input")

	// Library errors
	ErrPersistence      = fmt.Errorf("persistence failed")
	ErrToggleInFlight   = fmt.Errorf("like toggle already in flight")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrProfileNotFound  = fmt.Errorf("profile not found")

	// Network and playback errors
	ErrNetwork    = fmt.Errorf("network request failed")
	ErrPlayback   = fmt.Errorf("playback failed")
	ErrSuperseded = fmt.Errorf("superseded by a newer request")
)
