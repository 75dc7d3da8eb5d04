package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// OverdueSweepTimeout bounds a single sweep run
const OverdueSweepTimeout = 2 * time.Minute

// MaintenanceMarkedOverdue counts tasks flipped to overdue by the sweep
var MaintenanceMarkedOverdue = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "maintenance_marked_overdue_total",
	Help: "Preventive maintenance tasks moved from pending to overdue by the scheduled sweep.",
})

// OverdueSweeper periodically marks pending maintenance tasks past their scheduled date as overdue
type OverdueSweeper struct {
	cron        *cron.Cron
	maintenance *MaintenanceService
}

// NewOverdueSweeper registers the sweep on schedule (standard cron spec or descriptor such as "@hourly").
// Runs never overlap.
func NewOverdueSweeper(maintenance *MaintenanceService, schedule string) (*OverdueSweeper, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	s := &OverdueSweeper{cron: c, maintenance: maintenance}

	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid overdue sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the sweep in its own goroutine
func (s *OverdueSweeper) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *OverdueSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single sweep and returns the number of tasks marked overdue
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.maintenance.MarkOverdue(ctx)
	if err != nil {
		return 0, err
	}
	MaintenanceMarkedOverdue.Add(float64(n))
	return n, nil
}

func (s *OverdueSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), OverdueSweepTimeout)
	defer cancel()

	n, err := s.RunOnce(ctx)
	if err != nil {
		log.Printf("[OVERDUE-SWEEP] error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[OVERDUE-SWEEP] marked %d maintenance task(s) overdue", n)
	}
}
