// Package check provides the assertions available to scenarios.
//
// Every failing assertion aborts the scenario by panicking with an
// *AssertionError; the harness recovers it and classifies the outcome from
// its Kind. A scenario never needs to return after a failed check.
package check

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

type Kind string

const (
	KindEqual    Kind = "EQUAL"
	KindNotEqual Kind = "NOT_EQUAL"
	KindTrue     Kind = "TRUE"
	KindFail     Kind = "FAIL"
)

// allowUnexported lets values such as domain.Guess be compared field by field.
var allowUnexported = cmp.Exporter(func(reflect.Type) bool { return true })

type AssertionError struct {
	Kind     Kind
	Message  string
	Expected string
	Actual   string
	Diff     string
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindEqual:
		b.WriteString("assertion `left == right` failed")
	case KindNotEqual:
		b.WriteString("assertion `left != right` failed")
	case KindTrue:
		if e.Message != "" {
			return e.Message
		}
		return "assertion failed: condition is false"
	default:
		return e.Message
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	fmt.Fprintf(&b, "\n  left: %s\n right: %s", e.Expected, e.Actual)
	return b.String()
}

// HasMessage reports whether the caller supplied its own diagnostic.
func (e *AssertionError) HasMessage() bool {
	return e.Message != ""
}

// Equal aborts when expected and actual differ.
func Equal(expected, actual any, msgAndArgs ...any) {
	if cmp.Equal(expected, actual, allowUnexported) {
		return
	}
	panic(&AssertionError{
		Kind:     KindEqual,
		Message:  messageFromArgs(msgAndArgs...),
		Expected: format(expected),
		Actual:   format(actual),
		Diff:     cmp.Diff(expected, actual, allowUnexported),
	})
}

// NotEqual aborts when left and right are equal.
func NotEqual(left, right any, msgAndArgs ...any) {
	if !cmp.Equal(left, right, allowUnexported) {
		return
	}
	panic(&AssertionError{
		Kind:     KindNotEqual,
		Message:  messageFromArgs(msgAndArgs...),
		Expected: format(left),
		Actual:   format(right),
	})
}

// True aborts when condition is false.
func True(condition bool, msgAndArgs ...any) {
	if condition {
		return
	}
	panic(&AssertionError{Kind: KindTrue, Message: messageFromArgs(msgAndArgs...)})
}

// Fail aborts unconditionally.
func Fail(msg string) {
	panic(&AssertionError{Kind: KindFail, Message: msg})
}

func format(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

func messageFromArgs(msgAndArgs ...any) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if msg, ok := msgAndArgs[0].(string); ok {
			return msg
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		if msg, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(msg, msgAndArgs[1:]...)
		}
		return fmt.Sprint(msgAndArgs...)
	}
}
