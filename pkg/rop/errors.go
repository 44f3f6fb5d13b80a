package rop

import (
	"context"
	"errors"
	"reflect"
)

func IsNil(i interface{}) bool {
	if i == nil || (reflect.ValueOf(i).Kind() == reflect.Ptr && reflect.ValueOf(i).IsNil()) {
		return true
	}
	return false
}

// GetErrors flattens an errors.Join result; a plain error becomes a
// one-element slice.
func GetErrors(err error) []error {
	if IsNil(err) {
		return []error{}
	}

	e, ok := err.(interface{ Unwrap() []error })
	if ok {
		return e.Unwrap()
	}

	return []error{err}
}

func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// FromError turns a (value, error) pair into a Result. Context errors become
// cancellations.
func FromError[T any](v T, err error) Result[T] {
	switch {
	case err == nil:
		return Success(v)
	case IsCancellationError(err):
		return Cancel[T](err)
	default:
		return Fail[T](err)
	}
}
