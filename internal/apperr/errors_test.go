package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	assert.Equal(t, KindBusinessRule, KindOf(BusinessRulef("not allowed")))
	assert.Equal(t, KindNotFound, KindOf(NotFoundf("missing")))
	assert.Equal(t, KindPersistence, KindOf(Persistence(errors.New("db down"), "query failed")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain error")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFoundf("product missing"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsNotFound(err))
}

func TestPersistenceUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause, "failed to save")

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "failed to save")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestInsufficientStock(t *testing.T) {
	err := InsufficientStock("Widget", 3, 10)

	assert.True(t, IsBusinessRule(err))
	assert.Contains(t, err.Error(), "Widget")
	assert.Contains(t, err.Error(), "current: 3")
	assert.Contains(t, err.Error(), "requested: 10")
}

func TestInvalidTransition(t *testing.T) {
	err := InvalidTransition("purchase order", "cancelled", "approved")

	assert.True(t, IsBusinessRule(err))
	assert.Contains(t, err.Error(), "cancelled")
	assert.Contains(t, err.Error(), "approved")
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsValidation(Validationf("x")))
	assert.False(t, IsValidation(NotFoundf("x")))
	assert.True(t, IsPersistence(Persistence(errors.New("x"), "y")))
	assert.False(t, IsPersistence(BusinessRulef("x")))
}
