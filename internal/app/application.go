package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bgfactura/invoicing/internal/app/jobs"
	"github.com/bgfactura/invoicing/internal/app/services/auth"
	"github.com/bgfactura/invoicing/internal/app/services/clients"
	"github.com/bgfactura/invoicing/internal/app/services/documents"
	"github.com/bgfactura/invoicing/internal/app/services/expenses"
	"github.com/bgfactura/invoicing/internal/app/services/pdf"
	"github.com/bgfactura/invoicing/internal/app/services/products"
	"github.com/bgfactura/invoicing/internal/app/services/settings"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/storage/memory"
	"github.com/bgfactura/invoicing/internal/app/system"
	"github.com/bgfactura/invoicing/internal/cache"
	"github.com/bgfactura/invoicing/internal/logging"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users     storage.UserStore
	Companies storage.CompanyStore
	Clients   storage.ClientStore
	Products  storage.ProductStore
	Documents storage.DocumentStore
	Expenses  storage.ExpenseStore
	Banking   storage.BankingStore
}

// Options tunes the wiring. The zero value is usable for tests.
type Options struct {
	Auth auth.Config
	// Scopes caches resolved auth scopes. Nil uses an in-process cache.
	Scopes   cache.ScopeCache
	ScopeTTL time.Duration
	// FontDir holds DejaVuSans*.ttf for Cyrillic PDFs.
	FontDir string
	// VATChecker answers VIES lookups. Nil disables the VAT check endpoint.
	VATChecker clients.VATChecker
	StrictEIK  bool
	Locale     settings.Locale
	// OverdueSchedule is the cron spec of the overdue marker. The marker is
	// only registered when OverdueEnabled is set.
	OverdueSchedule string
	OverdueEnabled  bool
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger

	Auth      *auth.Service
	Clients   *clients.Service
	Products  *products.Service
	Documents *documents.Service
	Expenses  *expenses.Service
	Settings  *settings.Service
	Overdue   *jobs.OverdueMarker
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Companies == nil {
		stores.Companies = mem
	}
	if stores.Clients == nil {
		stores.Clients = mem
	}
	if stores.Products == nil {
		stores.Products = mem
	}
	if stores.Documents == nil {
		stores.Documents = mem
	}
	if stores.Expenses == nil {
		stores.Expenses = mem
	}
	if stores.Banking == nil {
		stores.Banking = mem
	}
	if opts.Scopes == nil {
		ttl := opts.ScopeTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		opts.Scopes = cache.NewMemory(ttl)
	}

	manager := system.NewManager()

	authService := auth.New(stores.Users, stores.Companies, opts.Scopes, opts.Auth, log)
	clientService := clients.New(stores.Clients, log).WithStrictEIK(opts.StrictEIK)
	if opts.VATChecker != nil {
		clientService.WithVATChecker(opts.VATChecker)
	}
	productService := products.New(stores.Products, log)
	documentService := documents.New(stores.Documents, stores.Clients, stores.Products, stores.Companies, stores.Banking, log).
		WithRenderer(pdf.NewRenderer(opts.FontDir, log))
	expenseService := expenses.New(stores.Expenses, stores.Clients, log)
	settingsService := settings.New(stores.Companies, stores.Banking, documentService, opts.Locale, log)

	for _, name := range []string{"auth", "clients", "products", "documents", "expenses", "settings"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	var overdue *jobs.OverdueMarker
	if opts.OverdueEnabled {
		overdue = jobs.NewOverdueMarker(stores.Documents, opts.OverdueSchedule, log)
		if err := manager.Register(overdue); err != nil {
			return nil, fmt.Errorf("register %s: %w", overdue.Name(), err)
		}
	} else {
		log.Warn("overdue marker disabled")
	}

	return &Application{
		manager:   manager,
		log:       log,
		Auth:      authService,
		Clients:   clientService,
		Products:  productService,
		Documents: documentService,
		Expenses:  expenseService,
		Settings:  settingsService,
		Overdue:   overdue,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists the registered lifecycle services in start order.
func (a *Application) Services() []string {
	return a.manager.Services()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
