// Package apperr holds the error types handlers return and the fiber error handler that renders them.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string {
	if e.Msg == "" {
		return "conflict"
	}
	return e.Msg
}

// ValidationError lists offending request fields keyed by their JSON name.
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}

func NotFound(resource string) error { return NotFoundError{Resource: resource} }

func Forbidden(msg string) error { return ForbiddenError{Msg: msg} }

func Conflict(msg string) error { return ConflictError{Msg: msg} }

func Invalid(field, msg string) error {
	return ValidationError{Fields: map[string]string{field: msg}}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}
