package service

import (
	"context"
	"testing"

	"erp-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestCreateAuditValidation(t *testing.T) {
	s := &stockAuditService{}

	_, err := s.CreateAudit(context.Background(), "", CreateAuditRequest{
		AuditName: "  ",
		AuditDate: "2026-08-26",
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.CreateAudit(context.Background(), "", CreateAuditRequest{
		AuditName: "Q3 count",
		AuditDate: "26/08/2026",
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestRecordCountValidation(t *testing.T) {
	s := &stockAuditService{}
	auditID := "0b9fba9f-8f36-4a0e-b6f1-555555555555"
	productID := "0b9fba9f-8f36-4a0e-b6f1-666666666666"

	_, err := s.RecordCount(context.Background(), "", "bad-id", RecordCountRequest{
		ProductID:      productID,
		ActualQuantity: 5,
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.RecordCount(context.Background(), "", auditID, RecordCountRequest{
		ProductID:      "bad-id",
		ActualQuantity: 5,
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.RecordCount(context.Background(), "", auditID, RecordCountRequest{
		ProductID:      productID,
		ActualQuantity: -1,
	})
	assert.True(t, apperr.IsValidation(err))
}
