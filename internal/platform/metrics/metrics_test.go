package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTickTracksMax(t *testing.T) {
	c := New()

	c.RecordTick(5 * time.Millisecond)
	c.RecordTick(2 * time.Millisecond)

	assert.Equal(t, int64(2), c.TickCount)
	assert.Equal(t, int64(5*time.Millisecond), c.TickLatencyMax)
}

func TestRecordSettlement(t *testing.T) {
	c := New()

	c.RecordSettlement(50, 25, 1, true)
	c.RecordSettlement(-10, 0, 0, false)
	c.RecordSnapshot(nil)
	c.RecordSnapshot(errors.New("locked"))

	assert.Equal(t, int64(2), c.SessionsSettled)
	assert.Equal(t, int64(40), c.CompanyNetPaid)
	assert.Equal(t, int64(1), c.StorageFullEvents)
	assert.Equal(t, int64(1), c.SnapshotsSaved)
	assert.Equal(t, int64(1), c.SnapshotSaveErrors)
}

func TestHandlerServesJSON(t *testing.T) {
	c := New()
	c.RecordSettlement(50, 25, 0, false)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	settlement := body["settlement"].(map[string]any)
	assert.Equal(t, 50.0, settlement["company_net_paid"])
}

func TestPrometheusHandler(t *testing.T) {
	c := New()
	c.RecordWSMessage(true)
	c.SetSessions(3)

	rec := httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "bytelife_sessions_active 3")
	assert.Contains(t, body, `bytelife_ws_messages_total{direction="in"} 1`)
	assert.Contains(t, body, "# TYPE bytelife_tick_count counter")
}
