// Package metrics provides observability for the foundry server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
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
	SignalProduced float64

	// Persistence metrics
	SavesWritten int64
	SaveLatSum   int64
	SaveLatMax   int64
	SaveErrors   int64
	Loads        int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
	ops       map[string]*opCounter
}

type opCounter struct {
	calls    int64
	failures int64
}

// Global collector instance
var collector = NewCollector()

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		StartTime: time.Now(),
		ops:       make(map[string]*opCounter),
	}
}

// RecordTick records a tick reconciliation and the signal it produced.
func (c *Collector) RecordTick(latency time.Duration, produced float64) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.SignalProduced += produced
	c.mu.Unlock()
}

// RecordOperation counts a core operation and whether it failed.
func (c *Collector) RecordOperation(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.ops[name]
	if !ok {
		op = &opCounter{}
		c.ops[name] = op
	}
	op.calls++
	if err != nil {
		op.failures++
	}
}

// RecordSave records a snapshot write.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.SavesWritten, 1)
	atomic.AddInt64(&c.SaveLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.SaveLatMax) {
		atomic.StoreInt64(&c.SaveLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
	}
}

// RecordLoad records a snapshot restore.
func (c *Collector) RecordLoad() {
	atomic.AddInt64(&c.Loads, 1)
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

// OperationCounts returns calls and failures for a core operation.
func (c *Collector) OperationCounts(name string) (calls, failures int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if op, ok := c.ops[name]; ok {
		return op.calls, op.failures
	}
	return 0, 0
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	saves := atomic.LoadInt64(&c.SavesWritten)

	var tickAvg, saveAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if saves > 0 {
		saveAvg = float64(atomic.LoadInt64(&c.SaveLatSum)) / float64(saves) / 1e6
	}

	ops := make(map[string]interface{}, len(c.ops))
	for name, op := range c.ops {
		ops[name] = map[string]interface{}{
			"calls":    op.calls,
			"failures": op.failures,
		}
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":           tickCount,
			"avg_latency_ms":  tickAvg,
			"max_latency_ms":  float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":       c.LastTickTime.Format(time.RFC3339),
			"signal_produced": c.SignalProduced,
		},

		"persistence": map[string]interface{}{
			"saves":           saves,
			"avg_save_lat_ms": saveAvg,
			"max_save_lat_ms": float64(atomic.LoadInt64(&c.SaveLatMax)) / 1e6,
			"save_errors":     atomic.LoadInt64(&c.SaveErrors),
			"loads":           atomic.LoadInt64(&c.Loads),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"operations": ops,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP foundry_tick_count Total tick reconciliations\n")
		fmt.Fprintf(w, "# TYPE foundry_tick_count counter\n")
		fmt.Fprintf(w, "foundry_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP foundry_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE foundry_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "foundry_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP foundry_saves_total Total snapshot writes\n")
		fmt.Fprintf(w, "# TYPE foundry_saves_total counter\n")
		fmt.Fprintf(w, "foundry_saves_total %d\n\n", atomic.LoadInt64(&c.SavesWritten))

		fmt.Fprintf(w, "# HELP foundry_save_errors_total Total snapshot write errors\n")
		fmt.Fprintf(w, "# TYPE foundry_save_errors_total counter\n")
		fmt.Fprintf(w, "foundry_save_errors_total %d\n\n", atomic.LoadInt64(&c.SaveErrors))

		fmt.Fprintf(w, "# HELP foundry_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE foundry_ws_connections gauge\n")
		fmt.Fprintf(w, "foundry_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP foundry_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE foundry_ws_messages_total counter\n")
		fmt.Fprintf(w, "foundry_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "foundry_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		c.mu.RLock()
		defer c.mu.RUnlock()

		fmt.Fprintf(w, "# HELP foundry_signal_produced_total Signal produced by generators\n")
		fmt.Fprintf(w, "# TYPE foundry_signal_produced_total counter\n")
		fmt.Fprintf(w, "foundry_signal_produced_total %.4f\n\n", c.SignalProduced)

		names := make([]string, 0, len(c.ops))
		for name := range c.ops {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "# HELP foundry_operations_total Core operations by outcome\n")
		fmt.Fprintf(w, "# TYPE foundry_operations_total counter\n")
		for _, name := range names {
			op := c.ops[name]
			fmt.Fprintf(w, "foundry_operations_total{op=%q,outcome=\"ok\"} %d\n", name, op.calls-op.failures)
			fmt.Fprintf(w, "foundry_operations_total{op=%q,outcome=\"error\"} %d\n", name, op.failures)
		}
	}
}
