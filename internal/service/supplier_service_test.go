package service

import (
	"context"
	"testing"

	"erp-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestSupplierCodeFormat(t *testing.T) {
	valid := []string{"SUP-001", "ACME", "A1", "LONG-CODE-12345-XYZ"}
	for _, code := range valid {
		assert.True(t, supplierCodeRe.MatchString(code), code)
	}

	invalid := []string{"", "a", "sup-001", "SUP 001", "-SUP", "WAY-TOO-LONG-SUPPLIER-CODE-123"}
	for _, code := range invalid {
		assert.False(t, supplierCodeRe.MatchString(code), code)
	}
}

func TestCreateSupplierValidation(t *testing.T) {
	s := &supplierService{}

	_, err := s.CreateSupplier(context.Background(), CreateSupplierRequest{
		SupplierCode: "x",
		Name:         "Acme",
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.CreateSupplier(context.Background(), CreateSupplierRequest{
		SupplierCode: "SUP-001",
		Name:         "  ",
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.CreateSupplier(context.Background(), CreateSupplierRequest{
		SupplierCode: "SUP-001",
		Name:         "Acme",
		Email:        "not-an-email",
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestCreateSupplierUpcasesCodeBeforeCheck(t *testing.T) {
	// The code is upcased before the format check, so only characters that
	// stay invalid after normalization are rejected.
	s := &supplierService{}

	_, err := s.CreateSupplier(context.Background(), CreateSupplierRequest{
		SupplierCode: "sup 001",
		Name:         "Acme",
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestListSuppliersRejectsUnknownStatus(t *testing.T) {
	s := &supplierService{}

	_, _, err := s.ListSuppliers(context.Background(), "", "retired", 1, 20)
	assert.True(t, apperr.IsValidation(err))
}
