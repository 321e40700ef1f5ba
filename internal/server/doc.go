// Package server provides HTTP routing, middleware, and the OAuth redirect handler used for browser sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added; the first added is outermost.
//
// The [BasicRouter] implementation registers [http.ServeMux] method patterns such as "GET /callback".
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code redirect.
// It validates the state parameter, exchanges the code (with the PKCE verifier when given) and
// sends the token through a channel. Only one callback is processed.
//
// [CallbackServer] runs the handler on a temporary local server (localhost:3000 by default),
// opens the browser and shuts down once a result arrives or the flow times out.
package server
