package usecase

import (
	"errors"
	"fmt"
	"path"
	"reflect"

	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/stacktrace"
)

// wrapperPkgs hold the error types that only add context or join errors.
var wrapperPkgs = map[string]struct{}{
	"errors": {},
	"fmt":    {},
}

// KindOf names the failure reported as errorKind for errors outside the SMTP
// taxonomy. An error in the chain implementing Kind() string wins; otherwise
// the first named error type is used, skipping the stdlib wrappers. A type
// literally named Error is qualified with its package ("url.Error"). With
// nothing to name, KindOf returns UnexpectedError.
func KindOf(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) && k.Kind() != "" {
		return k.Kind()
	}

	if name := typeName(err); name != "" {
		return name
	}

	return entity.KindUnexpected
}

func typeName(err error) string {
	if err == nil {
		return ""
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if _, skip := wrapperPkgs[t.PkgPath()]; !skip && t.Name() != "" {
		if t.Name() == "Error" {
			return path.Base(t.PkgPath()) + ".Error"
		}
		return t.Name()
	}

	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return typeName(u.Unwrap())
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if name := typeName(e); name != "" {
				return name
			}
		}
	}

	return ""
}

// PanicError carries a value recovered from a panicking transport.
type PanicError struct {
	Value any
	// Stack lists the module frames leading to the panic.
	Stack []string
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: stacktrace.Callers(2)}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (*PanicError) Kind() string { return entity.KindPanic }
