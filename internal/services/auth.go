package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/server"
	"github.com/desertthunder/ytplay/internal/shared"
	"golang.org/x/oauth2"
)

// AuthUser is the identity returned by the auth API.
type AuthUser struct {
	ID               string              `json:"id"`
	Email            string              `json:"email"`
	EmailConfirmedAt string              `json:"email_confirmed_at,omitempty"`
	UserMetadata     models.UserMetadata `json:"user_metadata"`
}

// Verified reports whether the user's email address has been confirmed.
func (u AuthUser) Verified() bool {
	return u.EmailConfirmedAt != ""
}

// AuthSession is a signed-in session as returned by the token endpoints.
type AuthSession struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int      `json:"expires_in,omitempty"`
	User         AuthUser `json:"user"`
}

// signUpResponse is either a session or, when confirmation is required, a bare user.
type signUpResponse struct {
	AuthSession
	AuthUser
}

type authErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e authErrorResponse) String() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func providerSession(u AuthUser) *models.ProviderSession {
	return &models.ProviderSession{
		UserID:        u.ID,
		Email:         u.Email,
		EmailVerified: u.Verified(),
		Metadata:      u.UserMetadata,
	}
}

// AuthService is a client for a GoTrue-compatible auth API and implements session.Provider.
//
// Session changes are published to subscribers; sessions are persisted to disk when a session path is configured.
type AuthService struct {
	baseURL     string
	apiKey      string
	sessionPath string
	oauth       map[string]shared.OAuthConfig
	redirectURL string
	callback    *server.CallbackServer
	openBrowser func(string) error
	httpClient  *http.Client
	logger      *log.Logger
	hub         *shared.Hub[models.SessionEvent]

	mu      sync.Mutex
	session *AuthSession
	pending *AuthUser
}

// NewAuthService creates an auth client. OAuth redirects are served on srv.
func NewAuthService(cfg shared.AuthConfig, srv shared.ServerConfig, client *http.Client, logger *log.Logger) *AuthService {
	if client == nil {
		client = http.DefaultClient
	}
	logger = shared.WithLogger(logger, "component", "auth")

	return &AuthService{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		sessionPath: cfg.SessionPath,
		oauth:       cfg.OAuth,
		redirectURL: srv.CallbackURL(),
		callback:    &server.CallbackServer{Addr: srv.Addr(), Logger: logger},
		openBrowser: shared.OpenBrowser,
		httpClient:  client,
		logger:      logger,
		hub:         shared.NewHub[models.SessionEvent](),
	}
}

// Restore loads a persisted session, if any. It does not publish an event;
// subscribers see the restored session as their initial event.
func (a *AuthService) Restore() error {
	if a.sessionPath == "" {
		return nil
	}

	data, err := os.ReadFile(a.sessionPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var s AuthSession
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}
	if s.AccessToken == "" || s.User.ID == "" {
		return fmt.Errorf("%w: session file has no active session", shared.ErrInvalidConfig)
	}

	a.mu.Lock()
	a.session = &s
	a.mu.Unlock()

	a.logger.Debug("restored session", "user", s.User.ID)
	return nil
}

// Session returns the current identity, or nil when signed out.
func (a *AuthService) Session() *models.ProviderSession {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.session != nil:
		return providerSession(a.session.User)
	case a.pending != nil:
		return providerSession(*a.pending)
	default:
		return nil
	}
}

// Subscribe emits [models.EventInitialSession] followed by every session change until ctx ends.
func (a *AuthService) Subscribe(ctx context.Context) <-chan models.SessionEvent {
	updates, cancel := a.hub.Subscribe()

	out := make(chan models.SessionEvent, 1)
	out <- models.SessionEvent{Event: models.EventInitialSession, Session: a.Session()}

	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (a *AuthService) emit(event models.AuthEvent) {
	a.hub.Publish(models.SessionEvent{Event: event, Session: a.Session()})
}

// SignUp registers a new identity with profile metadata.
//
// When the API requires email confirmation no session is returned; the user is then reported as signed up but unverified.
func (a *AuthService) SignUp(ctx context.Context, email, password string, meta models.UserMetadata) error {
	body := map[string]any{"email": email, "password": password, "data": meta}

	var resp signUpResponse
	if err := a.do(ctx, http.MethodPost, "/auth/v1/signup", body, &resp); err != nil {
		return err
	}

	if resp.AccessToken != "" {
		return a.setSession(resp.AuthSession, models.EventSignedIn)
	}

	user := resp.AuthUser
	if user.ID == "" {
		user = resp.AuthSession.User
	}
	if user.ID == "" {
		return fmt.Errorf("%w: sign up response has no user", shared.ErrAuthFailed)
	}

	a.mu.Lock()
	a.pending = &user
	a.mu.Unlock()

	a.logger.Info("signed up, awaiting email confirmation", "user", user.ID)
	a.emit(models.EventSignedUp)
	return nil
}

// SignInWithPassword exchanges email and password for a session.
func (a *AuthService) SignInWithPassword(ctx context.Context, email, password string) error {
	var s AuthSession
	body := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, &s); err != nil {
		return err
	}
	return a.setSession(s, models.EventSignedIn)
}

// SignInWithOAuth runs an authorization code flow with PKCE against the named provider in the browser,
// then exchanges the provider's ID token for a session.
func (a *AuthService) SignInWithOAuth(ctx context.Context, provider string) error {
	cfg, ok := a.oauth[provider]
	if !ok {
		return fmt.Errorf("%w: no oauth provider %q configured", shared.ErrInvalidConfig, provider)
	}

	scopes := cfg.Scopes
	if !slices.Contains(scopes, "openid") {
		scopes = append([]string{"openid"}, scopes...)
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  a.redirectURL,
		Scopes:       scopes,
		Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
	}

	verifier := oauth2.GenerateVerifier()
	state := shared.GenerateID()
	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	handler := server.NewOAuthHandler(conf, state, oauth2.VerifierOption(verifier))

	open := func() error {
		if err := a.openBrowser(authURL); err != nil {
			a.logger.Warn("could not open browser, open this URL to continue", "url", authURL, "error", err)
		}
		return nil
	}

	token, err := a.callback.AwaitCallback(ctx, handler, open)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return fmt.Errorf("%w: provider %s returned no id_token", shared.ErrAuthFailed, provider)
	}

	var s AuthSession
	body := map[string]string{"provider": provider, "id_token": idToken, "access_token": token.AccessToken}
	if err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=id_token", body, &s); err != nil {
		return err
	}
	return a.setSession(s, models.EventSignedIn)
}

// Refresh reloads the signed-in user, picking up email confirmation.
func (a *AuthService) Refresh(ctx context.Context) error {
	a.mu.Lock()
	signedIn := a.session != nil
	a.mu.Unlock()
	if !signedIn {
		return shared.ErrAuthRequired
	}

	var user AuthUser
	if err := a.do(ctx, http.MethodGet, "/auth/v1/user", nil, &user); err != nil {
		return err
	}

	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return shared.ErrAuthRequired
	}
	a.session.User = user
	s := *a.session
	a.mu.Unlock()

	if err := a.persist(&s); err != nil {
		a.logger.Warn("failed to persist session", "error", err)
	}
	a.emit(models.EventUserUpdated)
	return nil
}

// SignOut ends the session. The local session is cleared even when the API call fails.
func (a *AuthService) SignOut(ctx context.Context) error {
	a.mu.Lock()
	signedIn := a.session != nil
	a.mu.Unlock()

	var err error
	if signedIn {
		err = a.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil)
		if err != nil {
			a.logger.Warn("logout request failed, clearing local session", "error", err)
		}
	}

	a.mu.Lock()
	a.session = nil
	a.pending = nil
	a.mu.Unlock()

	if rmErr := a.persist(nil); rmErr != nil {
		a.logger.Warn("failed to remove session file", "error", rmErr)
	}
	a.emit(models.EventSignedOut)
	return err
}

func (a *AuthService) setSession(s AuthSession, event models.AuthEvent) error {
	if s.AccessToken == "" || s.User.ID == "" {
		return fmt.Errorf("%w: response has no session", shared.ErrAuthFailed)
	}

	a.mu.Lock()
	a.session = &s
	a.pending = nil
	a.mu.Unlock()

	if err := a.persist(&s); err != nil {
		a.logger.Warn("failed to persist session", "error", err)
	}

	a.logger.Info("signed in", "user", s.User.ID, "verified", s.User.Verified())
	a.emit(event)
	return nil
}

// persist writes s to the session file, or removes the file when s is nil.
func (a *AuthService) persist(s *AuthSession) error {
	if a.sessionPath == "" {
		return nil
	}

	if s == nil {
		if err := os.Remove(a.sessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(a.sessionPath), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(a.sessionPath, data, 0600)
}

// cooldownPath is the sign-up cooldown file, kept beside the session file.
func (a *AuthService) cooldownPath() string {
	if a.sessionPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(a.sessionPath), "signup_cooldown.json")
}

type cooldownFile struct {
	Until time.Time `json:"until"`
}

// LoadCooldown returns the saved sign-up cooldown deadline, or the zero time when none is saved.
func (a *AuthService) LoadCooldown() (time.Time, error) {
	path := a.cooldownPath()
	if path == "" {
		return time.Time{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read cooldown file: %w", err)
	}

	var f cooldownFile
	if err := json.Unmarshal(data, &f); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse cooldown file: %w", err)
	}
	return f.Until, nil
}

// SaveCooldown records the sign-up cooldown deadline.
func (a *AuthService) SaveCooldown(until time.Time) error {
	path := a.cooldownPath()
	if path == "" {
		return nil
	}

	data, err := json.Marshal(cooldownFile{Until: until})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (a *AuthService) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	a.mu.Lock()
	if a.session != nil {
		req.Header.Set("Authorization", "Bearer "+a.session.AccessToken)
	}
	a.mu.Unlock()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr authErrorResponse
		msg := string(data)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.String() != "" {
			msg = apiErr.String()
		}
		return fmt.Errorf("%w: status %d: %s", shared.ErrAuthFailed, resp.StatusCode, msg)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
