package documents

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/calendar"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/storage"
)

const recentInvoices = 5

// Dashboard is the landing page summary of a company.
type Dashboard struct {
	TotalInvoices   int                 `json:"totalInvoices"`
	TotalRevenue    decimal.Decimal     `json:"totalRevenue"`
	TotalClients    int                 `json:"totalClients"`
	PendingInvoices int                 `json:"pendingInvoices"`
	MonthlyRevenue  decimal.Decimal     `json:"monthlyRevenue"`
	RevenueGrowth   decimal.Decimal     `json:"revenueGrowth"`
	RecentInvoices  []document.Document `json:"recentInvoices"`
}

// Dashboard aggregates invoice counts and revenue. Revenue counts paid
// invoices only.
func (s *Service) Dashboard(ctx context.Context, companyID int64) (Dashboard, error) {
	invoices := document.Filter{Type: document.TypeInvoice}
	all, err := s.docs.AggregateDocuments(ctx, companyID, invoices)
	if err != nil {
		return Dashboard{}, storage.Translate(err, "Document", "")
	}

	paid := invoices
	paid.Statuses = []document.Status{document.StatusPaid}
	revenue, err := s.docs.AggregateDocuments(ctx, companyID, paid)
	if err != nil {
		return Dashboard{}, storage.Translate(err, "Document", "")
	}

	pending := invoices
	pending.Statuses = []document.Status{document.StatusSent, document.StatusOverdue}
	open, err := s.docs.AggregateDocuments(ctx, companyID, pending)
	if err != nil {
		return Dashboard{}, storage.Translate(err, "Document", "")
	}

	now := s.now().UTC()
	monthStart, monthEnd := calendar.MonthBounds(now)
	current, err := s.paidBetween(ctx, companyID, monthStart, monthEnd)
	if err != nil {
		return Dashboard{}, err
	}
	previous, err := s.paidBetween(ctx, companyID, monthStart.AddDate(0, -1, 0), monthStart)
	if err != nil {
		return Dashboard{}, err
	}

	clients, err := s.clients.ListActiveClients(ctx, companyID)
	if err != nil {
		return Dashboard{}, storage.Translate(err, "Client", "")
	}

	recent, _, err := s.docs.ListDocuments(ctx, companyID, invoices, storage.ListOptions{Page: 1, Limit: recentInvoices})
	if err != nil {
		return Dashboard{}, storage.Translate(err, "Document", "")
	}

	return Dashboard{
		TotalInvoices:   all.Count,
		TotalRevenue:    revenue.Total.Round(2),
		TotalClients:    len(clients),
		PendingInvoices: open.Count,
		MonthlyRevenue:  current.Round(2),
		RevenueGrowth:   Growth(current, previous),
		RecentInvoices:  recent,
	}, nil
}

func (s *Service) paidBetween(ctx context.Context, companyID int64, from, to time.Time) (decimal.Decimal, error) {
	// DateTo is inclusive.
	until := to.Add(-time.Nanosecond)
	agg, err := s.docs.AggregateDocuments(ctx, companyID, document.Filter{
		Type:     document.TypeInvoice,
		Statuses: []document.Status{document.StatusPaid},
		DateFrom: &from,
		DateTo:   &until,
	})
	if err != nil {
		return decimal.Zero, storage.Translate(err, "Document", "")
	}
	return agg.Total, nil
}

// Growth is the percentage change from previous to current, rounded to one
// decimal. It is zero when there is nothing to compare against.
func Growth(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1)
}
