package gateway

import (
	"fmt"
	"reflect"
)

// panicErr wraps a recovered panic value from an executor call so it can be
// reported through the normal error path.
type panicErr struct {
	val any
}

func (p *panicErr) Error() string {
	return fmt.Sprintf("executor panic: %v", p.val)
}

// errorKind names the concrete type of an error with pointer indirection
// stripped, e.g. "errorString" for errors.New values. The kind is part of the
// error detail contract so clients can branch on failure class without
// parsing free-form messages.
func errorKind(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil {
		return "error"
	}

	if name := t.Name(); name != "" {
		return name
	}

	return t.String()
}

// errorDetail renders an error as "<kind>: <message>", the detail format used
// by both JSON error envelopes and in-band stream error events.
func errorDetail(err error) string {
	return fmt.Sprintf("%s: %s", errorKind(err), err.Error())
}
