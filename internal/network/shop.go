// Package network - shop.go
// ShopBridge: REST endpoint the payment service calls once a purchase is confirmed.
// Payment is validated upstream; the bridge only credits the player.
package network

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/go-playground/validator/v10"
)

// Purchase kinds.
const (
	PurchaseCurrency = "CURRENCY"
	PurchaseCapacity = "CAPACITY"
)

// ShopBridge applies confirmed purchases to player sessions.
type ShopBridge struct {
	engine   *engine.Engine
	logger   *logger.Logger
	validate *validator.Validate

	mu      sync.Mutex
	applied map[string]bool
}

// NewShopBridge creates a new shop handler.
func NewShopBridge(eng *engine.Engine, log *logger.Logger) *ShopBridge {
	return &ShopBridge{
		engine:   eng,
		logger:   log,
		validate: validator.New(),
		applied:  make(map[string]bool),
	}
}

// ConfirmRequest is the payload of a confirmed purchase.
type ConfirmRequest struct {
	PurchaseID string  `json:"purchase_id" validate:"required"`
	PlayerID   string  `json:"player_id" validate:"required"`
	Kind       string  `json:"kind" validate:"required,oneof=CURRENCY CAPACITY"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	Resource   string  `json:"resource" validate:"omitempty,oneof=memory cpu bandwidth computing storage"`
}

// HandleConfirm credits a confirmed purchase. Replays of the same purchase_id are acknowledged without effect.
// POST /api/shop/confirm
func (sb *ShopBridge) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := sb.validate.Struct(req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Kind == PurchaseCapacity && req.Resource == "" {
		jsonError(w, "Capacity purchase needs a resource", http.StatusBadRequest)
		return
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.applied[req.PurchaseID] {
		jsonSuccess(w, map[string]interface{}{"success": true, "duplicate": true, "purchase_id": req.PurchaseID})
		return
	}

	var err error
	switch req.Kind {
	case PurchaseCurrency:
		err = sb.engine.CreditCurrency(req.PlayerID, int64(req.Amount), req.PurchaseID)
	case PurchaseCapacity:
		kind, _ := resource.ParseKind(req.Resource)
		err = sb.engine.UpgradeCapacity(req.PlayerID, kind, req.Amount, req.PurchaseID)
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		if reject.HasCode(err, reject.CodeNotFound) {
			status = http.StatusNotFound
		}
		jsonError(w, err.Error(), status)
		return
	}
	sb.applied[req.PurchaseID] = true
	sb.logger.Event("SHOP_PURCHASE", req.PlayerID, req.Kind+" "+req.PurchaseID)

	st, _ := sb.engine.State(req.PlayerID)
	jsonSuccess(w, map[string]interface{}{
		"success":     true,
		"purchase_id": req.PurchaseID,
		"currency":    st.Pool.Currency,
	})
}

// RegisterRoutes sets up the shop API routes.
func (sb *ShopBridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/shop/confirm", sb.HandleConfirm)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
