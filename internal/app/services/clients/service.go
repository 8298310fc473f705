package clients

import (
	"context"
	"strings"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/validation"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

// Input is the create/update payload.
type Input struct {
	Name      string `json:"name" validate:"required"`
	EIK       string `json:"eik" validate:"required,min=9,max=13"`
	VATNumber string `json:"vatNumber" validate:"omitempty,min=9"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	IsActive  *bool  `json:"isActive"`
}

// Page is one page of clients.
type Page struct {
	Clients     []client.Client
	TotalCount  int
	TotalPages  int
	CurrentPage int
}

// DeleteResult reports whether the client was removed or only deactivated.
type DeleteResult struct {
	Deactivated bool
}

// Service manages a company's clients.
type Service struct {
	store     storage.ClientStore
	vies      VATChecker
	strictEIK bool
	log       *logging.Logger
}

// New constructs the clients service.
func New(store storage.ClientStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("clients")
	}
	return &Service{store: store, log: log}
}

// WithVATChecker attaches the registry used by CheckVAT.
func (s *Service) WithVATChecker(checker VATChecker) *Service {
	s.vies = checker
	return s
}

// WithStrictEIK enables checksum validation of client EIKs.
func (s *Service) WithStrictEIK(strict bool) *Service {
	s.strictEIK = strict
	return s
}

// List returns a page of clients ordered by name.
func (s *Service) List(ctx context.Context, companyID int64, opts storage.ListOptions) (Page, error) {
	opts = opts.Normalize()
	list, total, err := s.store.ListClients(ctx, companyID, opts)
	if err != nil {
		return Page{}, storage.Translate(err, "Client", "")
	}
	return Page{Clients: list, TotalCount: total, TotalPages: opts.TotalPages(total), CurrentPage: opts.Page}, nil
}

// Active returns the summaries of active clients for pickers.
func (s *Service) Active(ctx context.Context, companyID int64) ([]client.Summary, error) {
	list, err := s.store.ListActiveClients(ctx, companyID)
	if err != nil {
		return nil, storage.Translate(err, "Client", "")
	}
	out := make([]client.Summary, len(list))
	for i, c := range list {
		out[i] = c.Summary()
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (client.Client, error) {
	c, err := s.store.GetClient(ctx, companyID, id)
	if err != nil {
		return client.Client{}, storage.Translate(err, "Client", "")
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, companyID int64, in Input) (client.Client, error) {
	in = in.normalized()
	if err := s.validate(in); err != nil {
		return client.Client{}, err
	}
	if err := s.ensureUniqueEIK(ctx, companyID, in.EIK, 0); err != nil {
		return client.Client{}, err
	}

	c := client.Client{CompanyID: companyID, IsActive: true}
	in.apply(&c)
	c, err := s.store.CreateClient(ctx, c)
	if err != nil {
		return client.Client{}, storage.Translate(err, "Client", duplicateEIK)
	}
	s.log.WithField("company_id", companyID).
		WithField("client_id", c.ID).
		Info("client created")
	return c, nil
}

func (s *Service) Update(ctx context.Context, companyID, id int64, in Input) (client.Client, error) {
	in = in.normalized()
	if err := s.validate(in); err != nil {
		return client.Client{}, err
	}
	c, err := s.store.GetClient(ctx, companyID, id)
	if err != nil {
		return client.Client{}, storage.Translate(err, "Client", "")
	}
	if err := s.ensureUniqueEIK(ctx, companyID, in.EIK, id); err != nil {
		return client.Client{}, err
	}

	in.apply(&c)
	c, err = s.store.UpdateClient(ctx, c)
	if err != nil {
		return client.Client{}, storage.Translate(err, "Client", duplicateEIK)
	}
	s.log.WithField("company_id", companyID).
		WithField("client_id", id).
		Info("client updated")
	return c, nil
}

// Delete removes the client, or deactivates it when documents or expenses
// still reference it.
func (s *Service) Delete(ctx context.Context, companyID, id int64) (DeleteResult, error) {
	c, err := s.store.GetClient(ctx, companyID, id)
	if err != nil {
		return DeleteResult{}, storage.Translate(err, "Client", "")
	}
	refs, err := s.store.CountClientDocuments(ctx, companyID, id)
	if err != nil {
		return DeleteResult{}, storage.Translate(err, "Client", "")
	}
	if refs > 0 {
		c.IsActive = false
		if _, err := s.store.UpdateClient(ctx, c); err != nil {
			return DeleteResult{}, storage.Translate(err, "Client", "")
		}
		s.log.WithField("client_id", id).
			WithField("references", refs).
			Info("client deactivated")
		return DeleteResult{Deactivated: true}, nil
	}
	if err := s.store.DeleteClient(ctx, companyID, id); err != nil {
		return DeleteResult{}, storage.Translate(err, "Client", "")
	}
	s.log.WithField("client_id", id).Info("client deleted")
	return DeleteResult{}, nil
}

// CheckVAT looks a VAT number up in the EU registry.
func (s *Service) CheckVAT(ctx context.Context, vatNumber string) (VATCheck, error) {
	if s.vies == nil {
		return VATCheck{}, apperrors.Upstream("VAT registry is not configured", nil)
	}
	country, number, err := SplitVATNumber(vatNumber)
	if err != nil {
		return VATCheck{}, err
	}
	return s.vies.Check(ctx, country, number)
}

const duplicateEIK = "Client with this EIK already exists"

func (s *Service) validate(in Input) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if s.strictEIK && !validation.ValidEIK(in.EIK) {
		return apperrors.Validation("Validation failed").WithDetails("eik", "invalid EIK checksum")
	}
	return nil
}

func (s *Service) ensureUniqueEIK(ctx context.Context, companyID int64, eik string, excludeID int64) error {
	exists, err := s.store.ClientEIKExists(ctx, companyID, eik, excludeID)
	if err != nil {
		return storage.Translate(err, "Client", "")
	}
	if exists {
		return apperrors.Conflict(duplicateEIK)
	}
	return nil
}

func (in Input) normalized() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.EIK = strings.TrimSpace(in.EIK)
	in.VATNumber = strings.ToUpper(strings.TrimSpace(in.VATNumber))
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func (in Input) apply(c *client.Client) {
	c.Name = in.Name
	c.EIK = in.EIK
	c.VATNumber = in.VATNumber
	c.Address = in.Address
	c.City = in.City
	c.Email = in.Email
	c.Phone = in.Phone
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}
