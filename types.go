package sessionreplay

import (
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
	"github.com/sessionreplay/sessionreplay-go/pkg/redux"
)

type (
	NetworkRequest  = event.NetworkRequest
	NetworkResponse = event.NetworkResponse

	// Value is a track property value: one of event.String, event.Number,
	// event.Bool, event.Strings, event.Numbers or event.Bools.
	Value = event.Value
	// Primitive is a trait, tag or extra value: event.String, event.Number
	// or event.Bool.
	Primitive = event.Primitive

	ReduxMiddlewareOptions = redux.MiddlewareOptions
)

// UserTraits are attributes of the identified user.
type UserTraits map[string]Primitive

// Properties are the open set of track event properties.
type Properties map[string]Value

// TrackEventProperties describe a tracked event. Revenue is reserved for the
// monetary value of the event and is always numeric.
type TrackEventProperties struct {
	Revenue    *float64
	Properties Properties
}

// Revenue returns a pointer to v for TrackEventProperties.Revenue.
func Revenue(v float64) *float64 {
	return &v
}

// ExceptionOptions attach metadata to a captured exception.
type ExceptionOptions struct {
	Tags  map[string]Primitive
	Extra map[string]Primitive
}
