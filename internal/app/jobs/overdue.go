package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bgfactura/invoicing/internal/app/domain/calendar"
	"github.com/bgfactura/invoicing/internal/app/metrics"
	"github.com/bgfactura/invoicing/internal/app/system"
	"github.com/bgfactura/invoicing/internal/logging"
)

var _ system.Service = (*OverdueMarker)(nil)

// DefaultOverdueSchedule runs the marker at the top of every hour.
const DefaultOverdueSchedule = "@hourly"

// OverdueStore flips sent invoices whose due date has passed.
type OverdueStore interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// OverdueMarker marks sent invoices overdue on a cron schedule.
type OverdueMarker struct {
	store    OverdueStore
	log      *logging.Logger
	schedule string
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewOverdueMarker creates a lifecycle-managed overdue marker. An empty
// schedule uses DefaultOverdueSchedule.
func NewOverdueMarker(store OverdueStore, schedule string, log *logging.Logger) *OverdueMarker {
	if log == nil {
		log = logging.NewDefault("overdue-marker")
	}
	if schedule == "" {
		schedule = DefaultOverdueSchedule
	}
	return &OverdueMarker{
		store:    store,
		log:      log,
		schedule: schedule,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

func (m *OverdueMarker) Name() string { return "overdue-marker" }

func (m *OverdueMarker) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() { m.Run(context.Background()) }); err != nil {
		return fmt.Errorf("overdue schedule %q: %w", m.schedule, err)
	}
	c.Start()
	m.cron = c
	m.running = true

	m.log.WithField("schedule", m.schedule).Info("overdue marker started")
	return nil
}

func (m *OverdueMarker) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	c := m.cron
	m.running = false
	m.cron = nil
	m.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	m.log.Info("overdue marker stopped")
	return nil
}

// Run marks every sent invoice due before today as overdue and returns how
// many changed.
func (m *OverdueMarker) Run(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	asOf := calendar.StartOfDay(m.now().UTC())
	marked, err := m.store.MarkOverdue(ctx, asOf)
	metrics.RecordOverdueRun(marked, err == nil)
	if err != nil {
		m.log.WithError(err).Warn("overdue marker run failed")
		return 0
	}
	if marked > 0 {
		m.log.WithField("marked", marked).
			WithField("as_of", asOf.Format(calendar.DateLayout)).
			Info("invoices marked overdue")
	}
	return marked
}
