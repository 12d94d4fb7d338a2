// Package redux mirrors the flow of a unidirectional state container into a
// session recording.
//
// A Middleware has the classic shape func(store) func(next) dispatch, so it
// composes with any store that exposes its current state and a dispatch
// function.
package redux

type (
	State  = map[string]any
	Action = map[string]any
)

// Store is the part of a state container a middleware can observe.
type Store interface {
	GetState() State
}

// Dispatch sends an action through the pipeline and returns whatever the
// next stage returns.
type Dispatch func(action Action) any

type Middleware func(store Store) func(next Dispatch) Dispatch

// MiddlewareOptions are the optional sanitizer hooks applied before an
// action/state pair is recorded.
type MiddlewareOptions struct {
	// StateSanitizer scrubs the state recorded after each dispatch. It cannot
	// suppress state capture: a nil result is recorded as an empty state.
	StateSanitizer func(state State) State
	// ActionSanitizer scrubs an action before it is recorded. Returning nil
	// excludes the action from the recording; it is still dispatched.
	ActionSanitizer func(action Action) Action
}

// Apply composes mws around base. The first middleware is the outermost, as
// in applyMiddleware.
func Apply(store Store, base Dispatch, mws ...Middleware) Dispatch {
	dispatch := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		dispatch = mws[i](store)(dispatch)
	}
	return dispatch
}

// StoreFunc adapts a function to Store.
type StoreFunc func() State

func (f StoreFunc) GetState() State {
	return f()
}
