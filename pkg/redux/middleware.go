package redux

import (
	"time"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"

	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

// Recorder receives captured dispatches.
type Recorder interface {
	RecordRedux(r *event.Redux)
	HandleError(err error)
}

// overridden in tests
var clock = time.Now

// New returns a middleware that records each dispatched action and the state
// that results from it. Recording never changes what is dispatched or what
// dispatch returns.
func New(rec Recorder, opts *MiddlewareOptions) Middleware {
	if opts == nil {
		opts = &MiddlewareOptions{}
	}
	return func(store Store) func(next Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) any {
				start := clock()
				captured, keep := sanitizeAction(rec, opts.ActionSanitizer, action)

				result := next(action)

				if keep {
					state := sanitizeState(rec, opts.StateSanitizer, store)
					rec.RecordRedux(&event.Redux{
						Action:   captured,
						State:    state,
						Duration: int(clock().Sub(start) / time.Millisecond),
					})
				}
				return result
			}
		}
	}
}

func sanitizeAction(rec Recorder, sanitizer func(Action) Action, action Action) (captured Action, keep bool) {
	defer func() {
		if r := recover(); r != nil {
			rec.HandleError(errors.Errorf("redux: action sanitizer panicked: %v", r))
			captured, keep = nil, false
		}
	}()

	copied, err := deepCopy(action)
	if err != nil {
		rec.HandleError(errors.Wrap(err, "redux: copy action"))
		return nil, false
	}
	if sanitizer == nil {
		return copied, true
	}
	captured = sanitizer(copied)
	return captured, captured != nil
}

func sanitizeState(rec Recorder, sanitizer func(State) State, store Store) (state State) {
	defer func() {
		if r := recover(); r != nil {
			rec.HandleError(errors.Errorf("redux: state sanitizer panicked: %v", r))
			state = State{}
		}
	}()

	if store == nil {
		return State{}
	}
	copied, err := deepCopy(store.GetState())
	if err != nil {
		rec.HandleError(errors.Wrap(err, "redux: copy state"))
		return State{}
	}
	if sanitizer != nil {
		copied = sanitizer(copied)
	}
	if copied == nil {
		copied = State{}
	}
	return copied
}

// deepCopy gives sanitizers their own copy so scrubbing never mutates the
// live store.
func deepCopy(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	c, err := copystructure.Copy(m)
	if err != nil {
		return nil, err
	}
	return c.(map[string]any), nil
}
