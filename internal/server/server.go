// package server provides the local HTTP plumbing for CLI OAuth flows.
//
// During authentication a temporary server starts on localhost, receives
// the provider's authorization callback, exchanges the code for a token,
// and shuts down.
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which routes it serves.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and middleware and serves the result.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
