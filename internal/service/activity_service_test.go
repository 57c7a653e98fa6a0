package service

import (
	"context"
	"testing"

	"erp-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestListByEntityRejectsBadID(t *testing.T) {
	s := &activityService{}

	_, _, err := s.ListByEntity(context.Background(), "not-a-uuid", 1, 20)
	assert.True(t, apperr.IsValidation(err))
}
