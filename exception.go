package sessionreplay

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

const (
	sourceCaptureException = "captureException"
	sourceConsole          = "console"

	maxStackDepth = 64
	maxCauses     = 32
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// newException normalises any value into an exception. When the value carries
// no stack of its own, the stack is captured from skip frames above the caller
// of newException.
func newException(v any, skip int) *event.Exception {
	ex := &event.Exception{Source: sourceCaptureException}

	switch t := v.(type) {
	case nil:
		ex.Message = "<nil>"
		ex.Type = "nil"
	case error:
		ex.Message = t.Error()
		ex.Type = fmt.Sprintf("%T", t)
		ex.Causes = causes(t)
		ex.Stack = errorStack(t)
	case string:
		ex.Message = t
		ex.Type = "string"
	case fmt.Stringer:
		ex.Message = t.String()
		ex.Type = fmt.Sprintf("%T", t)
	default:
		ex.Message = fmt.Sprintf("%+v", t)
		ex.Type = fmt.Sprintf("%T", t)
	}

	if len(ex.Stack) == 0 {
		ex.Stack = callerStack(skip + 2)
	}
	return ex
}

// causes lists the messages of the wrapped errors, outermost first. Both the
// standard Unwrap chain and pkg/errors Cause are followed.
func causes(err error) []string {
	var ret []string
	for i := 0; i < maxCauses; i++ {
		err = unwrap(err)
		if err == nil {
			break
		}
		ret = append(ret, err.Error())
	}
	return ret
}

func unwrap(err error) error {
	if next := errors.Unwrap(err); next != nil {
		return next
	}
	if c, ok := err.(interface{ Cause() error }); ok {
		return c.Cause()
	}
	return nil
}

// errorStack returns the deepest stack trace recorded by pkg/errors in the
// chain of err.
func errorStack(err error) []event.Frame {
	var deepest errors.StackTrace
	for i := 0; err != nil && i <= maxCauses; i++ {
		if st, ok := err.(stackTracer); ok {
			deepest = st.StackTrace()
		}
		err = unwrap(err)
	}
	if len(deepest) == 0 {
		return nil
	}
	pcs := make([]uintptr, len(deepest))
	for i, f := range deepest {
		pcs[i] = uintptr(f)
	}
	return framesOf(pcs)
}

func callerStack(skip int) []event.Frame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+1, pcs)
	return framesOf(pcs[:n])
}

func framesOf(pcs []uintptr) []event.Frame {
	ret := []event.Frame{}
	frames := runtime.CallersFrames(pcs)
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			ret = append(ret, event.Frame{Function: f.Function, File: f.File, Line: f.Line})
		}
		if !more {
			return ret
		}
	}
}
