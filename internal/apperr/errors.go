// Package apperr defines the closed error taxonomy surfaced by the core
// services. Handlers map kinds to HTTP statuses; nothing is retried here.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"    // malformed or out-of-range input, rejected before persistence
	KindBusinessRule Kind = "business_rule" // inactive supplier, insufficient stock, bad state transition
	KindNotFound     Kind = "not_found"
	KindPersistence  Kind = "persistence" // transaction/storage failure, no partial writes
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func BusinessRulef(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage error; the original cause stays reachable
// through errors.Is/As.
func Persistence(err error, msg string) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// InsufficientStock is the rejection for any movement that would drive a
// balance negative.
func InsufficientStock(name string, current, requested int) *Error {
	return BusinessRulef("insufficient stock for product %s (current: %d, requested: %d)", name, current, requested)
}

// InvalidTransition rejects a state-machine move not permitted from the
// current status.
func InvalidTransition(entity, from, to string) *Error {
	return BusinessRulef("%s cannot transition from %s to %s", entity, from, to)
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsBusinessRule(err error) bool { return KindOf(err) == KindBusinessRule }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsPersistence(err error) bool  { return KindOf(err) == KindPersistence }
