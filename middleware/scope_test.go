package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/batchload"
)

type loadersKey struct{}

type loaders struct {
	users batchload.Loader[int, string]
}

func TestEachRequestGetsItsOwnScope(t *testing.T) {
	var fetches atomic.Int32
	var mu sync.Mutex
	var scopes []*batchload.Scope

	setup := func(r *http.Request, s *batchload.Scope) (*http.Request, error) {
		users, err := batchload.New(batchload.Options[int, string]{
			Name:  "user.byID",
			Scope: s,
			Fetch: func(_ context.Context, ids []int) (map[int]string, error) {
				fetches.Add(1)
				out := map[int]string{}
				for _, id := range ids {
					out[id] = fmt.Sprintf("user-%d", id)
				}
				return out, nil
			},
		})
		if err != nil {
			return nil, err
		}
		mu.Lock()
		scopes = append(scopes, s)
		mu.Unlock()
		return r.WithContext(context.WithValue(r.Context(), loadersKey{}, &loaders{users: users})), nil
	}

	r := chi.NewRouter()
	r.Use(Scope(Options{Scope: batchload.ScopeOptions{Wait: 5 * time.Millisecond}, Setup: setup}))
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		s, ok := batchload.FromContext(r.Context())
		require.True(t, ok)
		l := r.Context().Value(loadersKey{}).(*loaders)

		// two resolvers asking for the same user share one fetch
		name, _, err := l.users.Load(r.Context(), 1)
		require.NoError(t, err)
		again, _, err := l.users.Load(r.Context(), 1)
		require.NoError(t, err)

		w.Header().Set("X-Scope", s.ID())
		fmt.Fprint(w, name+","+again)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1,user-1", rec.Body.String())
	}

	// one fetch per request: nothing leaks between scopes
	assert.Equal(t, int32(2), fetches.Load())
	require.Len(t, scopes, 2)
	assert.NotEqual(t, scopes[0].ID(), scopes[1].ID())
	assert.True(t, scopes[0].Closed())
	assert.True(t, scopes[1].Closed())
}

func TestSetupErrorAnswers500(t *testing.T) {
	called := false
	h := Scope(Options{Setup: func(*http.Request, *batchload.Scope) (*http.Request, error) {
		return nil, errors.New("no db")
	}})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, called)
}
