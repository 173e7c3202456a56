// Package middleware gives every HTTP request its own batchload.Scope.
package middleware

import (
	"net/http"

	"github.com/unkn0wn-root/batchload"
)

// Options configure Scope.
type Options struct {
	// Scope holds defaults for every loader built in the request.
	Scope batchload.ScopeOptions

	// Setup builds the request's loader sets, e.g. by storing them in a
	// struct carried alongside the scope. An error answers 500.
	Setup func(r *http.Request, s *batchload.Scope) (*http.Request, error)
}

// Scope wraps next so each request runs inside a fresh scope, reachable with
// batchload.FromContext(r.Context()). The scope is closed when next returns;
// it is never shared between requests.
func Scope(opts Options) func(http.Handler) http.Handler {
	log := opts.Scope.Logger
	if log == nil {
		log = batchload.NopLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := batchload.NewScope(r.Context(), opts.Scope)
			defer s.Close()

			r = r.WithContext(batchload.NewContext(r.Context(), s))
			if opts.Setup != nil {
				nr, err := opts.Setup(r, s)
				if err != nil {
					log.Error("loader setup failed", batchload.Fields{"scope": s.ID(), "path": r.URL.Path, "err": err})
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if nr != nil {
					r = nr
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
