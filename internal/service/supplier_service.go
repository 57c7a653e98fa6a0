package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"erp-backend/internal/apperr"
	"erp-backend/internal/model"
	"erp-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type CreateSupplierRequest struct {
	SupplierCode  string `json:"supplier_code" binding:"required"`
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentTerms  string `json:"payment_terms"`
}

type UpdateSupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentTerms  string `json:"payment_terms"`
	Status        string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type SupplierResponse struct {
	ID            string `json:"id"`
	SupplierCode  string `json:"supplier_code"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	PaymentTerms  string `json:"payment_terms,omitempty"`
	Status        string `json:"status"`
}

var (
	supplierCodeRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,19}$`)
	emailRe        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

type SupplierService interface {
	CreateSupplier(ctx context.Context, req CreateSupplierRequest) (SupplierResponse, error)
	UpdateSupplier(ctx context.Context, id string, req UpdateSupplierRequest) (SupplierResponse, error)
	// DeactivateSupplier retires a supplier instead of deleting it so historic
	// purchase orders keep their reference.
	DeactivateSupplier(ctx context.Context, id string) (SupplierResponse, error)
	GetSupplier(ctx context.Context, id string) (SupplierResponse, error)
	ListSuppliers(ctx context.Context, search, status string, page, limit int) ([]SupplierResponse, int64, error)
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
}

func NewSupplierService(supplierRepo repository.SupplierRepository) SupplierService {
	return &supplierService{supplierRepo: supplierRepo}
}

func (s *supplierService) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (SupplierResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.SupplierCode))
	if !supplierCodeRe.MatchString(code) {
		return SupplierResponse{}, apperr.Validationf("supplier code %q must be 2-20 uppercase letters, digits or dashes", req.SupplierCode)
	}
	if strings.TrimSpace(req.Name) == "" {
		return SupplierResponse{}, apperr.Validationf("supplier name must not be blank")
	}
	if req.Email != "" && !emailRe.MatchString(req.Email) {
		return SupplierResponse{}, apperr.Validationf("invalid email address: %s", req.Email)
	}

	if _, err := s.supplierRepo.FindByCode(ctx, code); err == nil {
		return SupplierResponse{}, apperr.BusinessRulef("supplier code %s is already in use", code)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return SupplierResponse{}, apperr.Persistence(err, "failed to check supplier code")
	}

	supplier := model.Supplier{
		SupplierCode:  code,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		PaymentTerms:  req.PaymentTerms,
		Status:        model.SupplierActive,
	}
	if err := s.supplierRepo.Create(ctx, &supplier); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return SupplierResponse{}, apperr.BusinessRulef("supplier code %s is already in use", code)
		}
		return SupplierResponse{}, apperr.Persistence(err, "failed to create supplier")
	}

	return toSupplierResponse(&supplier), nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, id string, req UpdateSupplierRequest) (SupplierResponse, error) {
	supplier, err := s.findSupplier(ctx, id)
	if err != nil {
		return SupplierResponse{}, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return SupplierResponse{}, apperr.Validationf("supplier name must not be blank")
	}
	if req.Email != "" && !emailRe.MatchString(req.Email) {
		return SupplierResponse{}, apperr.Validationf("invalid email address: %s", req.Email)
	}
	if req.Status != "" && req.Status != model.SupplierActive && req.Status != model.SupplierInactive {
		return SupplierResponse{}, apperr.Validationf("unknown supplier status %q", req.Status)
	}

	supplier.Name = req.Name
	supplier.ContactPerson = req.ContactPerson
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address
	supplier.PaymentTerms = req.PaymentTerms
	if req.Status != "" {
		supplier.Status = req.Status
	}

	if err := s.supplierRepo.Save(ctx, supplier); err != nil {
		return SupplierResponse{}, apperr.Persistence(err, "failed to update supplier")
	}

	return toSupplierResponse(supplier), nil
}

func (s *supplierService) DeactivateSupplier(ctx context.Context, id string) (SupplierResponse, error) {
	supplier, err := s.findSupplier(ctx, id)
	if err != nil {
		return SupplierResponse{}, err
	}

	if supplier.Status == model.SupplierInactive {
		return SupplierResponse{}, apperr.BusinessRulef("supplier %s is already inactive", supplier.SupplierCode)
	}

	supplier.Status = model.SupplierInactive
	if err := s.supplierRepo.Save(ctx, supplier); err != nil {
		return SupplierResponse{}, apperr.Persistence(err, "failed to deactivate supplier")
	}

	return toSupplierResponse(supplier), nil
}

func (s *supplierService) GetSupplier(ctx context.Context, id string) (SupplierResponse, error) {
	supplier, err := s.findSupplier(ctx, id)
	if err != nil {
		return SupplierResponse{}, err
	}
	return toSupplierResponse(supplier), nil
}

func (s *supplierService) ListSuppliers(ctx context.Context, search, status string, page, limit int) ([]SupplierResponse, int64, error) {
	if status != "" && status != model.SupplierActive && status != model.SupplierInactive {
		return nil, 0, apperr.Validationf("unknown supplier status %q", status)
	}

	suppliers, total, err := s.supplierRepo.List(ctx, search, status, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to list suppliers")
	}

	res := make([]SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		res = append(res, toSupplierResponse(&suppliers[i]))
	}
	return res, total, nil
}

func (s *supplierService) findSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid supplier id: %s", id)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("supplier %s not found", id)
		}
		return nil, apperr.Persistence(err, "failed to load supplier")
	}
	return supplier, nil
}

func toSupplierResponse(sup *model.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:            sup.ID.String(),
		SupplierCode:  sup.SupplierCode,
		Name:          sup.Name,
		ContactPerson: sup.ContactPerson,
		Email:         sup.Email,
		Phone:         sup.Phone,
		Address:       sup.Address,
		PaymentTerms:  sup.PaymentTerms,
		Status:        sup.Status,
	}
}
