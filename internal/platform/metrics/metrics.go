// Package metrics provides observability for the simulation server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and economy metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Settlement metrics
	SessionsActive     int64
	SessionsSettled    int64
	SettlementFaults   int64
	CompanyNetPaid     int64
	JobPayouts         int64
	StorageFullEvents  int64
	DownloadsCompleted int64
	RejectedActions    int64
	SnapshotsSaved     int64
	SnapshotSaveErrors int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New returns an empty collector. Tests use their own; the server uses Get.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordSettlement records one session settled within a tick.
func (c *Collector) RecordSettlement(companyNet, jobPayout int64, faults int, storageFull bool) {
	atomic.AddInt64(&c.SessionsSettled, 1)
	atomic.AddInt64(&c.CompanyNetPaid, companyNet)
	atomic.AddInt64(&c.JobPayouts, jobPayout)
	atomic.AddInt64(&c.SettlementFaults, int64(faults))
	if storageFull {
		atomic.AddInt64(&c.StorageFullEvents, 1)
	}
}

// SetSessions sets the live session gauge.
func (c *Collector) SetSessions(n int) {
	atomic.StoreInt64(&c.SessionsActive, int64(n))
}

// RecordDownloadCompleted counts a finished skill download.
func (c *Collector) RecordDownloadCompleted() {
	atomic.AddInt64(&c.DownloadsCompleted, 1)
}

// RecordRejection counts a player action refused by the simulation.
func (c *Collector) RecordRejection() {
	atomic.AddInt64(&c.RejectedActions, 1)
}

// RecordSnapshot records a session snapshot write.
func (c *Collector) RecordSnapshot(err error) {
	if err != nil {
		atomic.AddInt64(&c.SnapshotSaveErrors, 1)
		return
	}
	atomic.AddInt64(&c.SnapshotsSaved, 1)
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"settlement": map[string]interface{}{
			"sessions_active":     atomic.LoadInt64(&c.SessionsActive),
			"sessions_settled":    atomic.LoadInt64(&c.SessionsSettled),
			"faults":              atomic.LoadInt64(&c.SettlementFaults),
			"company_net_paid":    atomic.LoadInt64(&c.CompanyNetPaid),
			"job_payouts":         atomic.LoadInt64(&c.JobPayouts),
			"storage_full":        atomic.LoadInt64(&c.StorageFullEvents),
			"downloads_completed": atomic.LoadInt64(&c.DownloadsCompleted),
			"rejected_actions":    atomic.LoadInt64(&c.RejectedActions),
			"snapshots_saved":     atomic.LoadInt64(&c.SnapshotsSaved),
			"snapshot_errors":     atomic.LoadInt64(&c.SnapshotSaveErrors),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		_ = json.NewEncoder(w).Encode(c.Snapshot())
	}
}

type promMetric struct {
	name, help, kind string
	value            *int64
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	counters := []promMetric{
		{"bytelife_tick_count", "Total tick cycles", "counter", &c.TickCount},
		{"bytelife_sessions_active", "Live player sessions", "gauge", &c.SessionsActive},
		{"bytelife_sessions_settled_total", "Session settlements", "counter", &c.SessionsSettled},
		{"bytelife_settlement_faults_total", "Entities that failed during settlement", "counter", &c.SettlementFaults},
		{"bytelife_company_net_paid_total", "Net company profit credited to owners", "counter", &c.CompanyNetPaid},
		{"bytelife_job_payouts_total", "Currency paid by jobs", "counter", &c.JobPayouts},
		{"bytelife_storage_full_total", "Settlements that hit full storage", "counter", &c.StorageFullEvents},
		{"bytelife_downloads_completed_total", "Skill downloads completed", "counter", &c.DownloadsCompleted},
		{"bytelife_rejected_actions_total", "Player actions refused", "counter", &c.RejectedActions},
		{"bytelife_events_written", "Total events written", "counter", &c.EventsWritten},
		{"bytelife_event_write_errors", "Total event write errors", "counter", &c.EventWriteErrors},
		{"bytelife_ws_connections", "Active WebSocket connections", "gauge", &c.WSConnectionsActive},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for _, m := range counters {
			fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
			fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
			fmt.Fprintf(w, "%s %d\n\n", m.name, atomic.LoadInt64(m.value))
		}

		fmt.Fprintf(w, "# HELP bytelife_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE bytelife_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "bytelife_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP bytelife_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE bytelife_ws_messages_total counter\n")
		fmt.Fprintf(w, "bytelife_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "bytelife_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
