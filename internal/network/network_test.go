package network

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.NewEngine(events.NewEventLog(nil), logger.Discard(), engine.Options{Workers: 2, Metrics: metrics.New()})
}

func action(t *testing.T, typ string, payload any) PlayerAction {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return PlayerAction{Type: typ, RequestID: "r1", Payload: raw}
}

func TestDispatchCreateCompany(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Register("p1", "One")
	require.NoError(t, err)
	d := NewDispatcher(eng)

	res, err := d.Dispatch("p1", action(t, ActionCreateCompany, map[string]string{"name": "Acme", "tier": "Small"}))
	require.NoError(t, err)
	require.NotNil(t, res)

	st, err := eng.State("p1")
	require.NoError(t, err)
	require.Len(t, st.Companies, 1)
	assert.Equal(t, "Acme", st.Companies[0].Name)
	assert.Equal(t, int64(0), st.Pool.Currency)
}

func TestDispatchValidatesPayload(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Register("p1", "One")
	require.NoError(t, err)
	d := NewDispatcher(eng)

	_, err = d.Dispatch("p1", action(t, ActionCreateCompany, map[string]string{"name": "Acme", "tier": "Huge"}))
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", errorPayload(err).Code)

	_, err = d.Dispatch("p1", PlayerAction{Type: "DANCE"})
	require.Error(t, err)
}

func TestDispatchRejectionKeepsCode(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Register("p1", "One")
	require.NoError(t, err)
	d := NewDispatcher(eng)

	_, err = d.Dispatch("p1", action(t, ActionCreateCompany, map[string]string{"name": "Big", "tier": "Medium"}))
	require.Error(t, err)
	p := errorPayload(err)
	assert.NotEqual(t, "BAD_REQUEST", p.Code)
	assert.NotEmpty(t, p.Kind)
}

func postConfirm(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/shop/confirm", bytes.NewReader(raw)))
	return rec
}

func TestShopCreditsOncePerPurchase(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Register("p1", "One")
	require.NoError(t, err)
	mux := NewMux(Routes{Shop: NewShopBridge(eng, logger.Discard())})

	req := ConfirmRequest{PurchaseID: "buy-1", PlayerID: "p1", Kind: PurchaseCurrency, Amount: 500}
	rec := postConfirm(t, mux, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postConfirm(t, mux, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duplicate":true`)

	st, _ := eng.State("p1")
	assert.Equal(t, int64(1500), st.Pool.Currency)
}

func TestShopUpgradesCapacity(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Register("p1", "One")
	require.NoError(t, err)
	mux := NewMux(Routes{Shop: NewShopBridge(eng, logger.Discard())})

	rec := postConfirm(t, mux, ConfirmRequest{PurchaseID: "buy-2", PlayerID: "p1", Kind: PurchaseCapacity, Amount: 4, Resource: "memory"})
	require.Equal(t, http.StatusOK, rec.Code)

	st, _ := eng.State("p1")
	assert.InDelta(t, 12.0, st.Pool.MemoryTotal, 1e-9)
}

func TestShopRejectsBadRequests(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Register("p1", "One")
	require.NoError(t, err)
	mux := NewMux(Routes{Shop: NewShopBridge(eng, logger.Discard())})

	rec := postConfirm(t, mux, ConfirmRequest{PurchaseID: "x", PlayerID: "p1", Kind: PurchaseCapacity, Amount: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postConfirm(t, mux, ConfirmRequest{PurchaseID: "x", PlayerID: "p1", Kind: "GIFT", Amount: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postConfirm(t, mux, ConfirmRequest{PurchaseID: "y", PlayerID: "ghost", Kind: PurchaseCurrency, Amount: 4})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/shop/confirm", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, get.Code)
}

func TestHistoryFiltersByPlayerAndType(t *testing.T) {
	eng := newTestEngine(t)
	for _, id := range []string{"p1", "p2"} {
		_, err := eng.Register(id, id)
		require.NoError(t, err)
	}
	require.NoError(t, eng.CreditCurrency("p1", 10, "a"))
	require.NoError(t, eng.CreditCurrency("p1", 20, "b"))
	require.NoError(t, eng.CreditCurrency("p2", 30, "c"))

	mux := NewMux(Routes{History: NewHistoryHandler(eng, nil, logger.Discard())})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?player_id=p1&type=CURRENCY_CREDITED&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.TotalEvents)
	assert.Equal(t, "p1", resp.Events[0].ActorID)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recap?player_id=p1&since=2025-01-01T00:00:00Z", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state?player_id=ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type savedSessions map[string]engine.SessionState

func (s savedSessions) LoadSession(_ context.Context, playerID string) (*engine.SessionState, error) {
	st, ok := s[playerID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// saved plays a short session on its own engine and returns its snapshot.
func saved(t *testing.T, playerID string, currency int64) savedSessions {
	t.Helper()
	other := newTestEngine(t)
	_, err := other.Register(playerID, "Saved")
	require.NoError(t, err)
	require.NoError(t, other.CreditCurrency(playerID, currency, "seed"))
	st, err := other.State(playerID)
	require.NoError(t, err)
	return savedSessions{playerID: st}
}

func TestStateRestoresSavedPlayer(t *testing.T) {
	eng := newTestEngine(t)
	store := saved(t, "p7", 4321)
	want := store["p7"].Pool.Currency
	mux := NewMux(Routes{History: NewHistoryHandler(eng, nil, logger.Discard()).WithLoader(store)})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state?player_id=p7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	st, err := eng.State("p7")
	require.NoError(t, err)
	assert.Equal(t, want, st.Pool.Currency)
	assert.Equal(t, "Saved", st.Player.Name)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state?player_id=ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeWSRestoresBeforeRegistering(t *testing.T) {
	eng := newTestEngine(t)
	store := saved(t, "p7", 4321)
	hub := NewHub(eng, logger.Discard(), nil, HubOptions{Loader: store})
	srv := httptest.NewServer(NewMux(Routes{Hub: hub}))
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player_id="
	conn, _, err := websocket.DefaultDialer.Dial(base+"p7&name=Other", nil)
	require.NoError(t, err)
	defer conn.Close()
	st, err := eng.State("p7")
	require.NoError(t, err)
	assert.Equal(t, store["p7"].Pool.Currency, st.Pool.Currency)
	assert.Equal(t, "Saved", st.Player.Name)

	fresh, _, err := websocket.DefaultDialer.Dial(base+"p8&name=New", nil)
	require.NoError(t, err)
	defer fresh.Close()
	st, err = eng.State("p8")
	require.NoError(t, err)
	assert.Equal(t, "New", st.Player.Name)
}

func TestMetricsAndHealthRoutes(t *testing.T) {
	mux := NewMux(Routes{Metrics: metrics.New()})
	for _, path := range []string{"/healthz", "/metrics", "/metrics/prometheus"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServeWSRequiresPlayer(t *testing.T) {
	eng := newTestEngine(t)
	hub := NewHub(eng, logger.Discard(), nil, HubOptions{})
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHubDeliversOnlyOwnEvents(t *testing.T) {
	eng := newTestEngine(t)
	hub := NewHub(eng, logger.Discard(), nil, HubOptions{})
	detach := hub.Attach(eng.EventLog())
	defer detach()

	srv := httptest.NewServer(NewMux(Routes{Hub: hub}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player_id=p1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	_, err = eng.Register("p2", "Two")
	require.NoError(t, err)
	require.NoError(t, eng.CreditCurrency("p2", 5, "other"))
	require.NoError(t, eng.CreditCurrency("p1", 7, "mine"))

	var msg struct {
		Type    string           `json:"type"`
		Payload events.GameEvent `json:"payload"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgTypeEvent, msg.Type)
	assert.Equal(t, "p1", msg.Payload.ActorID)
	assert.Equal(t, events.EventTypeCurrencyCredited, msg.Payload.Type)
}

func TestHubShutdownClearsConnectionGauge(t *testing.T) {
	eng := newTestEngine(t)
	m := metrics.New()
	hub := NewHub(eng, logger.Discard(), m, HubOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewMux(Routes{Hub: hub}))
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?player_id=p1", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.WSConnectionsActive))

	cancel()
	<-done
	assert.Zero(t, hub.ClientCount())
	assert.Zero(t, atomic.LoadInt64(&m.WSConnectionsActive))

	// The read pump's own cleanup must not count the socket twice.
	conn.Close()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&m.WSConnectionsActive))
}

func TestWebsocketActionIsAcknowledged(t *testing.T) {
	eng := newTestEngine(t)
	hub := NewHub(eng, logger.Discard(), nil, HubOptions{})
	srv := httptest.NewServer(NewMux(Routes{Hub: hub}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player_id=p1&name=One", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(PlayerAction{Type: ActionGetState, RequestID: "42"}))
	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgTypeAck, msg.Type)
	assert.Equal(t, "42", msg.RequestID)
}
