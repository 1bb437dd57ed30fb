package handlers

import (
	"net/http"

	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/interfaces/http/dto"
)

// StoreHandler exposes the purchase lifecycle over HTTP.
type StoreHandler struct {
	controller *purchase.Controller
	cat        *catalog.Catalog
	store      string
}

// NewStoreHandler creates a new StoreHandler for the active store.
func NewStoreHandler(controller *purchase.Controller, cat *catalog.Catalog, store string) *StoreHandler {
	return &StoreHandler{controller: controller, cat: cat, store: store}
}

// State handles GET /api/v1/store/state
func (h *StoreHandler) State(w http.ResponseWriter, r *http.Request) {
	resp := dto.StateResponse{
		State:        string(h.controller.State()),
		InitFailure:  string(h.controller.InitFailure()),
		Restoring:    h.controller.Restoring(),
		LoggedIn:     h.controller.LoggedIn(),
		Pending:      h.controller.Pending(),
		Capabilities: dto.FromCapabilities(h.controller.Capabilities()),
	}
	writeJSON(w, http.StatusOK, resp)
}

// Products handles GET /api/v1/store/products
func (h *StoreHandler) Products(w http.ResponseWriter, r *http.Request) {
	owned, err := h.controller.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	pending := make(map[string]bool)
	for _, id := range h.controller.Pending() {
		pending[id] = true
	}

	products := h.cat.Products()
	resp := make([]*dto.ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, dto.FromProduct(p, h.store, owned[p.ID], pending[p.ID]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Purchase handles POST /api/v1/store/purchase
func (h *StoreHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req dto.PurchaseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.controller.InitiatePurchase(r.Context(), req.ProductID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.PurchaseAcceptedResponse{
		ProductID: req.ProductID,
		State:     string(h.controller.State()),
	})
}

// Restore handles POST /api/v1/store/restore
func (h *StoreHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.RestoreTransactions(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{
		"restoring": h.controller.Restoring(),
	})
}

// Login handles POST /api/v1/store/login
func (h *StoreHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Login(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{
		"logged_in": h.controller.LoggedIn(),
	})
}

// Validate handles POST /api/v1/store/validate
func (h *StoreHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims, err := h.controller.ValidateReceipt()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromClaims(claims))
}
