package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/ayush/text-analysis/web/internal/session"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

// StateStore loads and creates session state.
type StateStore interface {
	Create(ctx context.Context) (*workflow.State, error)
	Load(ctx context.Context, sessionID string) (*workflow.State, error)
	TTL() time.Duration
}

type stateKey struct{}

// Sessions makes sure every request carries workflow state. A missing or
// expired session cookie gets a fresh session. Every response renews the
// cookie so it expires together with the stored state.
func Sessions(store StateStore, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var st *workflow.State
			if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
				st, err = store.Load(r.Context(), cookie.Value)
				if err != nil {
					log.Printf("session load: %v", err)
					http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
					return
				}
			}

			if st == nil {
				created, err := store.Create(r.Context())
				if err != nil {
					log.Printf("session create: %v", err)
					http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
					return
				}
				st = created
			}
			// The cookie slides with the stored session.
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    st.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(store.TTL() / time.Second),
			})

			ctx := WithState(r.Context(), st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithState stores workflow state in a context.
func WithState(ctx context.Context, st *workflow.State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// State returns the request's workflow state, or nil outside Sessions.
func State(ctx context.Context) *workflow.State {
	st, _ := ctx.Value(stateKey{}).(*workflow.State)
	return st
}
