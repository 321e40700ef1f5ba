package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// OAuthResult is the outcome of one authorization redirect: a token or the reason there is none.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler serves the redirect leg of an OAuth2 authorization code flow.
//
// Only the first request is processed; its outcome is delivered once on [OAuthHandler.Result].
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	opts    []oauth2.AuthCodeOption
	claimed atomic.Bool
	done    sync.Once
	results chan OAuthResult
}

// NewOAuthHandler creates a handler expecting state. opts are passed to the code exchange,
// e.g. [oauth2.VerifierOption] for PKCE.
func NewOAuthHandler(config *oauth2.Config, state string, opts ...oauth2.AuthCodeOption) *OAuthHandler {
	return &OAuthHandler{config: config, state: state, opts: opts, results: make(chan OAuthResult, 1)}
}

// Routes returns the redirect route. Providers redirect with GET.
func (h *OAuthHandler) Routes() []string {
	return []string{http.MethodGet + " " + CallbackPath}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.claimed.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("state") != h.state:
		h.fail(w, http.StatusBadRequest, errors.New("invalid state parameter"))
		return
	case q.Get("code") == "":
		reason := q.Get("error")
		if desc := q.Get("error_description"); desc != "" {
			reason += ": " + desc
		}
		h.fail(w, http.StatusBadRequest, fmt.Errorf("provider denied authorization: %s", reason))
		return
	}

	token, err := h.config.Exchange(r.Context(), q.Get("code"), h.opts...)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.Send(OAuthResult{Token: token})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, err error) {
	h.Send(OAuthResult{Err: err})
	http.Error(w, err.Error(), status)
}

// Send delivers result unless one was already delivered.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.done.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one [OAuthResult] and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Signed in to ytplay</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1>Signed in</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>
`
