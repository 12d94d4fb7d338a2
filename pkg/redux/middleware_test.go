package redux

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

type recorder struct {
	mu      sync.Mutex
	records []*event.Redux
	errs    []error
}

func (r *recorder) RecordRedux(e *event.Redux) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, e)
}

func (r *recorder) HandleError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// counterStore is a minimal reducer-backed store.
type counterStore struct {
	state State
}

func (s *counterStore) GetState() State { return s.state }

func (s *counterStore) reduce(action Action) any {
	switch action["type"] {
	case "INC":
		s.state["count"] = s.state["count"].(int) + 1
	case "LOGIN":
		s.state["user"] = map[string]any{"name": action["name"], "token": action["token"]}
	}
	return action
}

func newStore() *counterStore {
	return &counterStore{state: State{"count": 0}}
}

func Test_Middleware(t *testing.T) {
	t.Run("records action and resulting state", func(t *testing.T) {
		rec := &recorder{}
		store := newStore()
		dispatch := Apply(store, store.reduce, New(rec, nil))

		result := dispatch(Action{"type": "INC"})
		require.Equal(t, Action{"type": "INC"}, result)
		require.Equal(t, 1, store.state["count"])

		require.Len(t, rec.records, 1)
		require.Equal(t, map[string]any{"type": "INC"}, rec.records[0].Action)
		require.Equal(t, map[string]any{"count": 1}, rec.records[0].State)
	})

	t.Run("action sanitizer returning nil skips capture but not dispatch", func(t *testing.T) {
		rec := &recorder{}
		store := newStore()
		mw := New(rec, &MiddlewareOptions{
			ActionSanitizer: func(action Action) Action {
				if action["type"] == "INC" {
					return nil
				}
				return action
			},
		})
		dispatch := Apply(store, store.reduce, mw)

		dispatch(Action{"type": "INC"})
		dispatch(Action{"type": "NOOP"})
		require.Equal(t, 1, store.state["count"])
		require.Len(t, rec.records, 1)
		require.Equal(t, "NOOP", rec.records[0].Action["type"])
	})

	t.Run("sanitizers scrub copies, never the live store", func(t *testing.T) {
		rec := &recorder{}
		store := newStore()
		mw := New(rec, &MiddlewareOptions{
			ActionSanitizer: func(action Action) Action {
				delete(action, "token")
				return action
			},
			StateSanitizer: func(state State) State {
				state["user"].(map[string]any)["token"] = "scrubbed"
				return state
			},
		})
		dispatch := Apply(store, store.reduce, mw)

		dispatch(Action{"type": "LOGIN", "name": "ada", "token": "secret"})
		require.Equal(t, "secret", store.state["user"].(map[string]any)["token"])

		require.Len(t, rec.records, 1)
		require.NotContains(t, rec.records[0].Action, "token")
		require.Equal(t, "scrubbed", rec.records[0].State["user"].(map[string]any)["token"])
	})

	t.Run("state sanitizer returning nil still records a state", func(t *testing.T) {
		rec := &recorder{}
		store := newStore()
		mw := New(rec, &MiddlewareOptions{
			StateSanitizer: func(state State) State { return nil },
		})
		Apply(store, store.reduce, mw)(Action{"type": "INC"})
		require.Len(t, rec.records, 1)
		require.NotNil(t, rec.records[0].State)
		require.Len(t, rec.records[0].State, 0)
	})

	t.Run("panicking sanitizers are contained", func(t *testing.T) {
		rec := &recorder{}
		store := newStore()
		mw := New(rec, &MiddlewareOptions{
			ActionSanitizer: func(action Action) Action { panic(errors.New("boom")) },
		})
		dispatch := Apply(store, store.reduce, mw)
		require.NotPanics(t, func() { dispatch(Action{"type": "INC"}) })
		require.Equal(t, 1, store.state["count"])
		require.Len(t, rec.records, 0)
		require.Len(t, rec.errs, 1)
	})
}

func Test_Apply(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(store Store) func(next Dispatch) Dispatch {
			return func(next Dispatch) Dispatch {
				return func(action Action) any {
					order = append(order, name)
					return next(action)
				}
			}
		}
	}
	store := StoreFunc(func() State { return State{} })
	dispatch := Apply(store, func(action Action) any { return "done" }, tag("outer"), nil, tag("inner"))
	require.Equal(t, "done", dispatch(Action{"type": "X"}))
	require.Equal(t, []string{"outer", "inner"}, order)
}
