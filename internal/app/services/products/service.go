package products

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/product"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/validation"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

// Input is the create/update payload. Nil price and VAT rate fall back to
// the catalogue defaults on create.
type Input struct {
	Code        string           `json:"code"`
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitnil,dgte=0"`
	VATRate     *decimal.Decimal `json:"vatRate" validate:"omitnil,dgte=0,dlte=100"`
	Unit        string           `json:"unit"`
	IsActive    *bool            `json:"isActive"`
}

// Page is one page of products.
type Page struct {
	Products    []product.Product
	TotalCount  int
	TotalPages  int
	CurrentPage int
}

// DeleteResult reports whether the product was removed or only deactivated.
type DeleteResult struct {
	Deactivated bool
}

// Service manages the product catalogue.
type Service struct {
	store storage.ProductStore
	log   *logging.Logger
}

// New constructs the products service.
func New(store storage.ProductStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("products")
	}
	return &Service{store: store, log: log}
}

func (s *Service) List(ctx context.Context, companyID int64, opts storage.ListOptions) (Page, error) {
	opts = opts.Normalize()
	list, total, err := s.store.ListProducts(ctx, companyID, opts)
	if err != nil {
		return Page{}, storage.Translate(err, "Product", "")
	}
	return Page{Products: list, TotalCount: total, TotalPages: opts.TotalPages(total), CurrentPage: opts.Page}, nil
}

// Active returns summaries of active products for item pickers.
func (s *Service) Active(ctx context.Context, companyID int64) ([]product.Summary, error) {
	list, err := s.store.ListActiveProducts(ctx, companyID)
	if err != nil {
		return nil, storage.Translate(err, "Product", "")
	}
	out := make([]product.Summary, len(list))
	for i, p := range list {
		out[i] = p.Summary()
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (product.Product, error) {
	p, err := s.store.GetProduct(ctx, companyID, id)
	if err != nil {
		return product.Product{}, storage.Translate(err, "Product", "")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, companyID int64, in Input) (product.Product, error) {
	in = in.normalized()
	if err := validation.Struct(in); err != nil {
		return product.Product{}, err
	}
	if err := s.ensureUniqueCode(ctx, companyID, in.Code, 0); err != nil {
		return product.Product{}, err
	}

	p := product.Product{
		CompanyID: companyID,
		Price:     decimal.Zero,
		VATRate:   product.DefaultVATRate,
		Unit:      product.DefaultUnit,
		IsActive:  true,
	}
	in.apply(&p)
	p, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return product.Product{}, storage.Translate(err, "Product", duplicateCode)
	}
	s.log.WithField("company_id", companyID).
		WithField("product_id", p.ID).
		Info("product created")
	return p, nil
}

func (s *Service) Update(ctx context.Context, companyID, id int64, in Input) (product.Product, error) {
	in = in.normalized()
	if err := validation.Struct(in); err != nil {
		return product.Product{}, err
	}
	p, err := s.store.GetProduct(ctx, companyID, id)
	if err != nil {
		return product.Product{}, storage.Translate(err, "Product", "")
	}
	if err := s.ensureUniqueCode(ctx, companyID, in.Code, id); err != nil {
		return product.Product{}, err
	}

	in.apply(&p)
	p, err = s.store.UpdateProduct(ctx, p)
	if err != nil {
		return product.Product{}, storage.Translate(err, "Product", duplicateCode)
	}
	s.log.WithField("product_id", id).Info("product updated")
	return p, nil
}

// Delete removes the product, or deactivates it when document items use it.
func (s *Service) Delete(ctx context.Context, companyID, id int64) (DeleteResult, error) {
	p, err := s.store.GetProduct(ctx, companyID, id)
	if err != nil {
		return DeleteResult{}, storage.Translate(err, "Product", "")
	}
	uses, err := s.store.CountProductUsage(ctx, companyID, id)
	if err != nil {
		return DeleteResult{}, storage.Translate(err, "Product", "")
	}
	if uses > 0 {
		p.IsActive = false
		if _, err := s.store.UpdateProduct(ctx, p); err != nil {
			return DeleteResult{}, storage.Translate(err, "Product", "")
		}
		s.log.WithField("product_id", id).Info("product deactivated")
		return DeleteResult{Deactivated: true}, nil
	}
	if err := s.store.DeleteProduct(ctx, companyID, id); err != nil {
		return DeleteResult{}, storage.Translate(err, "Product", "")
	}
	s.log.WithField("product_id", id).Info("product deleted")
	return DeleteResult{}, nil
}

const duplicateCode = "Product with this code already exists"

func (s *Service) ensureUniqueCode(ctx context.Context, companyID int64, code string, excludeID int64) error {
	if code == "" {
		return nil
	}
	exists, err := s.store.ProductCodeExists(ctx, companyID, code, excludeID)
	if err != nil {
		return storage.Translate(err, "Product", "")
	}
	if exists {
		return apperrors.Conflict(duplicateCode)
	}
	return nil
}

func (in Input) normalized() Input {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.TrimSpace(in.Unit)
	return in
}

func (in Input) apply(p *product.Product) {
	p.Code = in.Code
	p.Name = in.Name
	p.Description = in.Description
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.VATRate != nil {
		p.VATRate = in.VATRate.Round(2)
	}
	if in.Unit != "" {
		p.Unit = in.Unit
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}
