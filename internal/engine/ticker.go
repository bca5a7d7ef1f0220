package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
)

// DefaultTickRate is the real time between settlements.
const DefaultTickRate = TickSeconds * time.Second

// TickHandler settles one tick. *Engine implements it.
type TickHandler interface {
	OnTick(ctx context.Context) ([]TickReport, error)
}

// Ticker manages the settlement heartbeat.
// It does NOT know about companies or jobs - only when a tick is due.
type Ticker struct {
	handler  TickHandler
	logger   *logger.Logger
	interval time.Duration
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewTicker creates a ticker firing every interval. A non-positive interval uses DefaultTickRate.
func NewTicker(h TickHandler, interval time.Duration, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickRate
	}
	return &Ticker{
		handler:  h,
		logger:   log,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the settlement loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("settlement ticker started", "interval", t.interval.String())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("settlement ticker stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("settlement ticker stopped manually")
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

func (t *Ticker) tick(ctx context.Context) {
	reports, err := t.handler.OnTick(ctx)
	if err != nil {
		t.logger.Error("tick aborted", "error", err, "settled", len(reports))
		return
	}
	var faults int
	for _, r := range reports {
		faults += len(r.Faults)
	}
	t.logger.Event("TICK", "SYSTEM", fmt.Sprintf("settled %d sessions, %d faults", len(reports), faults))
}
