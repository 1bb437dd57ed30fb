package handlers

import (
	"net/http"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/cassiomorais/storekit/internal/interfaces/http/dto"
	"github.com/cassiomorais/storekit/pkg/pause"
)

// ContinueHandler exposes the ad-gated continuation flow over HTTP.
type ContinueHandler struct {
	controller *continuation.Controller
	pauses     *pause.Registry
}

// NewContinueHandler creates a new ContinueHandler.
func NewContinueHandler(controller *continuation.Controller, pauses *pause.Registry) *ContinueHandler {
	return &ContinueHandler{controller: controller, pauses: pauses}
}

// Offer handles GET /api/v1/continue/offer
func (h *ContinueHandler) Offer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.FromOffer(h.controller.CurrentOffer(), false))
}

// Continue handles POST /api/v1/continue. A free offer continues the run in
// this request; an ad offer arms the reward ad, and the continue happens
// when the ad finishes.
func (h *ContinueHandler) Continue(w http.ResponseWriter, r *http.Request) {
	continued := false
	offer := h.controller.RequestContinue(func() { continued = true })
	writeJSON(w, http.StatusOK, dto.FromOffer(offer, continued))
}

// ShowAd handles POST /api/v1/continue/ad
func (h *ContinueHandler) ShowAd(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.ShowRewardAd(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{
		"outstanding": h.controller.Outstanding(),
	})
}

// Pause handles POST /api/v1/pause
func (h *ContinueHandler) Pause(w http.ResponseWriter, r *http.Request) {
	var req dto.PauseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if *req.Paused {
		h.pauses.Acquire(pause.CausePauseScreen)
	} else {
		h.pauses.Release(pause.CausePauseScreen)
	}

	writeJSON(w, http.StatusOK, dto.PauseResponse{
		Paused:    h.pauses.Paused(),
		TimeScale: h.pauses.TimeScale(),
	})
}
