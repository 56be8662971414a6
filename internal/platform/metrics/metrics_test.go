package metrics

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecordOperation(t *testing.T) {
	c := NewCollector()
	c.RecordOperation("buy_generator", nil)
	c.RecordOperation("buy_generator", errors.New("insufficient funds"))
	c.RecordOperation("venture", nil)

	calls, failures := c.OperationCounts("buy_generator")
	if calls != 2 || failures != 1 {
		t.Fatalf("expected 2 calls 1 failure got %d %d", calls, failures)
	}
	if calls, _ := c.OperationCounts("ignite"); calls != 0 {
		t.Fatalf("expected no ignite calls got %d", calls)
	}
}

func TestHandlerServesSnapshot(t *testing.T) {
	c := NewCollector()
	c.RecordTick(2*time.Millisecond, 12.5)
	c.RecordSave(time.Millisecond, nil)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected json body: %v", err)
	}
	tick := body["tick"].(map[string]interface{})
	if tick["count"].(float64) != 1 || tick["signal_produced"].(float64) != 12.5 {
		t.Fatalf("unexpected tick metrics %v", tick)
	}
}

func TestPrometheusHandler(t *testing.T) {
	c := NewCollector()
	c.RecordOperation("ping", nil)
	c.RecordWSConnection(1)

	rec := httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	out := rec.Body.String()
	for _, want := range []string{
		"foundry_ws_connections 1",
		`foundry_operations_total{op="ping",outcome="ok"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
