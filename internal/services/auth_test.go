package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

const testAPIKey = "anon-key"

func userJSON(id, email string, confirmed bool) map[string]any {
	u := map[string]any{"id": id, "email": email, "user_metadata": map[string]any{"username": "new"}}
	if confirmed {
		u["email_confirmed_at"] = "2026-01-02T03:04:05Z"
	}
	return u
}

func sessionJSON(user map[string]any) map[string]any {
	return map[string]any{"access_token": "access-" + user["id"].(string), "token_type": "bearer", "refresh_token": "refresh", "user": user}
}

// authAPI fakes the auth endpoints. Sign-ups for pending@example.com require confirmation.
func authAPI(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != testAPIKey {
			t.Errorf("missing apikey header on %s", r.URL.Path)
		}

		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		reply := func(status int, v any) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(v)
		}

		switch {
		case r.URL.Path == "/auth/v1/signup":
			data, _ := body["data"].(map[string]any)
			if data["username"] != "new" {
				t.Errorf("expected sign up metadata username new, got %v", body["data"])
			}
			if body["email"] == "pending@example.com" {
				reply(http.StatusOK, userJSON("u-pending", "pending@example.com", false))
				return
			}
			reply(http.StatusOK, sessionJSON(userJSON("u-1", body["email"].(string), true)))
		case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "password":
			if body["password"] != "secret" {
				reply(http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
				return
			}
			reply(http.StatusOK, sessionJSON(userJSON("u-1", body["email"].(string), false)))
		case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "id_token":
			if body["provider"] != "google" || body["id_token"] != "id-token" {
				reply(http.StatusBadRequest, map[string]string{"msg": "bad id token"})
				return
			}
			reply(http.StatusOK, sessionJSON(userJSON("u-oauth", "oauth@example.com", true)))
		case r.URL.Path == "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer access-u-1" {
				reply(http.StatusUnauthorized, map[string]string{"message": "invalid token"})
				return
			}
			reply(http.StatusOK, userJSON("u-1", "user@example.com", true))
		case r.URL.Path == "/auth/v1/logout":
			if r.Header.Get("Authorization") == "" {
				t.Error("expected bearer token on logout")
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestAuthService(t *testing.T, baseURL string) *AuthService {
	t.Helper()
	cfg := shared.AuthConfig{
		BaseURL:     baseURL,
		APIKey:      testAPIKey,
		SessionPath: filepath.Join(t.TempDir(), "session.json"),
	}
	svc := NewAuthService(cfg, shared.ServerConfig{Host: "127.0.0.1", Port: 0}, nil, nil)
	svc.openBrowser = func(string) error { return errors.New("no browser") }
	return svc
}

func nextEvent(t *testing.T, events <-chan models.SessionEvent) models.SessionEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
	}
	return models.SessionEvent{}
}

func TestAuthService(t *testing.T) {
	t.Run("Subscribe", func(t *testing.T) {
		t.Run("Emits Initial Session First", func(t *testing.T) {
			api := authAPI(t)
			defer api.Close()

			ctx, cancel := context.WithCancel(context.Background())
			events := newTestAuthService(t, api.URL).Subscribe(ctx)

			ev := nextEvent(t, events)
			if ev.Event != models.EventInitialSession || ev.Session != nil {
				t.Errorf("expected empty INITIAL_SESSION, got %+v", ev)
			}

			cancel()
			select {
			case _, ok := <-events:
				if ok {
					t.Error("expected channel to close after cancel")
				}
			case <-time.After(2 * time.Second):
				t.Fatal("channel not closed after cancel")
			}
		})
	})

	t.Run("SignUp", func(t *testing.T) {
		t.Run("Requiring Confirmation Reports Unverified", func(t *testing.T) {
			api := authAPI(t)
			defer api.Close()

			svc := newTestAuthService(t, api.URL)
			events := svc.Subscribe(context.Background())
			nextEvent(t, events)

			err := svc.SignUp(context.Background(), "pending@example.com", "secret", models.UserMetadata{Username: "new"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			ev := nextEvent(t, events)
			if ev.Event != models.EventSignedUp {
				t.Errorf("expected SIGNED_UP, got %s", ev.Event)
			}
			if ev.Session == nil || ev.Session.UserID != "u-pending" || ev.Session.EmailVerified {
				t.Errorf("expected unverified u-pending session, got %+v", ev.Session)
			}
			if _, err := os.Stat(svc.sessionPath); !os.IsNotExist(err) {
				t.Error("expected no session file without tokens")
			}
		})

		t.Run("With Session Signs In", func(t *testing.T) {
			api := authAPI(t)
			defer api.Close()

			svc := newTestAuthService(t, api.URL)
			events := svc.Subscribe(context.Background())
			nextEvent(t, events)

			if err := svc.SignUp(context.Background(), "user@example.com", "secret", models.UserMetadata{Username: "new"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			ev := nextEvent(t, events)
			if ev.Event != models.EventSignedIn || ev.Session == nil || !ev.Session.EmailVerified {
				t.Errorf("expected verified SIGNED_IN, got %+v", ev)
			}
			if ev.Session.Metadata.Username != "new" {
				t.Errorf("expected metadata username new, got %q", ev.Session.Metadata.Username)
			}
		})
	})

	t.Run("SignInWithPassword", func(t *testing.T) {
		t.Run("Persists Session", func(t *testing.T) {
			api := authAPI(t)
			defer api.Close()

			svc := newTestAuthService(t, api.URL)
			if err := svc.SignInWithPassword(context.Background(), "user@example.com", "secret"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			info, err := os.Stat(svc.sessionPath)
			if err != nil {
				t.Fatalf("expected session file, got %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
			}

			restored := newTestAuthService(t, api.URL)
			restored.sessionPath = svc.sessionPath
			if err := restored.Restore(); err != nil {
				t.Fatalf("expected restore to succeed, got %v", err)
			}
			if s := restored.Session(); s == nil || s.UserID != "u-1" || s.EmailVerified {
				t.Errorf("expected restored unverified u-1, got %+v", s)
			}
		})

		t.Run("Wrong Password Surfaces Provider Message", func(t *testing.T) {
			api := authAPI(t)
			defer api.Close()

			svc := newTestAuthService(t, api.URL)
			err := svc.SignInWithPassword(context.Background(), "user@example.com", "wrong")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Fatalf("expected ErrAuthFailed, got %v", err)
			}
			if want := "Invalid login credentials"; !strings.Contains(err.Error(), want) {
				t.Errorf("expected error to contain %q, got %q", want, err.Error())
			}
			if svc.Session() != nil {
				t.Error("expected no session after failed sign in")
			}
		})

		t.Run("Unreachable Server", func(t *testing.T) {
			svc := newTestAuthService(t, "http://127.0.0.1:1")
			if err := svc.SignInWithPassword(context.Background(), "a@b.c", "secret"); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Picks Up Confirmation", func(t *testing.T) {
			api := authAPI(t)
			defer api.Close()

			svc := newTestAuthService(t, api.URL)
			if err := svc.SignInWithPassword(context.Background(), "user@example.com", "secret"); err != nil {
				t.Fatalf("sign in failed: %v", err)
			}
			events := svc.Subscribe(context.Background())
			nextEvent(t, events)

			if err := svc.Refresh(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			ev := nextEvent(t, events)
			if ev.Event != models.EventUserUpdated || !ev.Session.EmailVerified {
				t.Errorf("expected verified USER_UPDATED, got %+v", ev)
			}
		})

		t.Run("Signed Out", func(t *testing.T) {
			svc := newTestAuthService(t, "http://unused")
			if err := svc.Refresh(context.Background()); !errors.Is(err, shared.ErrAuthRequired) {
				t.Errorf("expected ErrAuthRequired, got %v", err)
			}
		})
	})

	t.Run("SignOut", func(t *testing.T) {
		api := authAPI(t)
		defer api.Close()

		svc := newTestAuthService(t, api.URL)
		if err := svc.SignInWithPassword(context.Background(), "user@example.com", "secret"); err != nil {
			t.Fatalf("sign in failed: %v", err)
		}
		events := svc.Subscribe(context.Background())
		nextEvent(t, events)

		if err := svc.SignOut(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		ev := nextEvent(t, events)
		if ev.Event != models.EventSignedOut || ev.Session != nil {
			t.Errorf("expected empty SIGNED_OUT, got %+v", ev)
		}
		if _, err := os.Stat(svc.sessionPath); !os.IsNotExist(err) {
			t.Error("expected session file to be removed")
		}
	})

	t.Run("Restore", func(t *testing.T) {
		t.Run("Missing File", func(t *testing.T) {
			svc := newTestAuthService(t, "http://unused")
			if err := svc.Restore(); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if svc.Session() != nil {
				t.Error("expected no session")
			}
		})

		t.Run("Corrupt File", func(t *testing.T) {
			svc := newTestAuthService(t, "http://unused")
			if err := os.WriteFile(svc.sessionPath, []byte("{not json"), 0600); err != nil {
				t.Fatal(err)
			}
			if err := svc.Restore(); err == nil {
				t.Error("expected parse error")
			}
		})
	})

	t.Run("Cooldown", func(t *testing.T) {
		svc := newTestAuthService(t, "http://unused")

		if until, err := svc.LoadCooldown(); err != nil || !until.IsZero() {
			t.Fatalf("expected no saved cooldown, got %v %v", until, err)
		}

		deadline := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
		if err := svc.SaveCooldown(deadline); err != nil {
			t.Fatalf("failed to save cooldown: %v", err)
		}

		path := filepath.Join(filepath.Dir(svc.sessionPath), "signup_cooldown.json")
		if info, err := os.Stat(path); err != nil || info.Mode().Perm() != 0600 {
			t.Fatalf("expected cooldown file with mode 0600, got %v %v", info, err)
		}

		reloaded := NewAuthService(shared.AuthConfig{SessionPath: svc.sessionPath}, shared.ServerConfig{}, nil, nil)
		if until, err := reloaded.LoadCooldown(); err != nil || !until.Equal(deadline) {
			t.Errorf("expected %v, got %v %v", deadline, until, err)
		}

		if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.LoadCooldown(); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("SignInWithOAuth", func(t *testing.T) {
		t.Run("Unknown Provider", func(t *testing.T) {
			svc := newTestAuthService(t, "http://unused")
			if err := svc.SignInWithOAuth(context.Background(), "github"); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Exchanges ID Token", func(t *testing.T) {
			api := authAPI(t)
			defer api.Close()

			tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Errorf("failed to parse form: %v", err)
				}
				if r.Form.Get("code") != "good" || r.Form.Get("code_verifier") == "" {
					http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{"access_token": "provider-access", "token_type": "Bearer", "id_token": "id-token"})
			}))
			defer tokens.Close()

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatalf("failed to listen: %v", err)
			}
			port := ln.Addr().(*net.TCPAddr).Port

			cfg := shared.AuthConfig{
				BaseURL: api.URL,
				APIKey:  testAPIKey,
				OAuth: map[string]shared.OAuthConfig{
					"google": {ClientID: "client", AuthURL: "https://accounts.example.com/authorize", TokenURL: tokens.URL},
				},
			}
			svc := NewAuthService(cfg, shared.ServerConfig{Host: "127.0.0.1", Port: port}, nil, nil)
			svc.callback.Listen = func(string, string) (net.Listener, error) { return ln, nil }
			svc.openBrowser = func(authURL string) error {
				u, err := url.Parse(authURL)
				if err != nil {
					return err
				}
				q := u.Query()
				if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
					t.Errorf("expected PKCE challenge in %s", authURL)
				}
				if q.Get("scope") != "openid" {
					t.Errorf("expected openid scope, got %q", q.Get("scope"))
				}

				resp, err := http.Get(q.Get("redirect_uri") + "?state=" + url.QueryEscape(q.Get("state")) + "&code=good")
				if err != nil {
					return err
				}
				io.Copy(io.Discard, resp.Body)
				return resp.Body.Close()
			}

			if err := svc.SignInWithOAuth(context.Background(), "google"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s := svc.Session(); s == nil || s.UserID != "u-oauth" || !s.EmailVerified {
				t.Errorf("expected verified u-oauth session, got %+v", s)
			}
		})
	})
}
