package service

import (
	"context"
	"testing"

	"erp-backend/internal/apperr"
	"erp-backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestSignedDelta(t *testing.T) {
	tests := []struct {
		name         string
		movementType string
		quantity     int
		want         int
		wantErr      bool
	}{
		{"inbound positive", model.MovementIn, 10, 10, false},
		{"inbound zero rejected", model.MovementIn, 0, 0, true},
		{"inbound negative rejected", model.MovementIn, -5, 0, true},
		{"outbound stored negative", model.MovementOut, 7, -7, false},
		{"outbound zero rejected", model.MovementOut, 0, 0, true},
		{"outbound negative rejected", model.MovementOut, -3, 0, true},
		{"adjustment up", model.MovementAdjustment, 4, 4, false},
		{"adjustment down", model.MovementAdjustment, -4, -4, false},
		{"adjustment zero rejected", model.MovementAdjustment, 0, 0, true},
		{"unknown type rejected", "transfer", 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := signedDelta(tt.movementType, tt.quantity)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, apperr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyMovementRejectsBadInput(t *testing.T) {
	// Input validation fires before any repository access
	s := &stockService{}

	_, err := s.ApplyMovement(context.Background(), "", ApplyMovementRequest{
		ProductID:    "not-a-uuid",
		MovementType: model.MovementIn,
		Quantity:     1,
	})
	assert.True(t, apperr.IsValidation(err))

	negCost := -1.0
	_, err = s.ApplyMovement(context.Background(), "", ApplyMovementRequest{
		ProductID:    "0b9fba9f-8f36-4a0e-b6f1-111111111111",
		MovementType: model.MovementIn,
		Quantity:     1,
		UnitCost:     &negCost,
	})
	assert.True(t, apperr.IsValidation(err))
}
