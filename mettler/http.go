package mettler

import (
	"encoding/json"
	"net/http"

	"github.jpl.nasa.gov/bdube/gobench/httpinstr"
)

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface.
// Bind it to a mux with httpinstr.Bind.
type HTTPWrapper struct {
	// Balance is the underlying scale that is wrapped
	*Balance

	// RouteTable maps method/path pairs to handlers
	RouteTable httpinstr.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(b *Balance) *HTTPWrapper {
	w := &HTTPWrapper{Balance: b}
	rt := httpinstr.RouteTable{
		{Method: http.MethodGet, Path: "/weight"}:           w.HTTPWeigh,
		{Method: http.MethodGet, Path: "/weight-immediate"}: w.HTTPWeighImmediate,
		{Method: http.MethodPost, Path: "/zero"}:            w.HTTPZero,
		{Method: http.MethodPost, Path: "/tare"}:            w.HTTPTare,
		{Method: http.MethodGet, Path: "/idn"}:              w.HTTPIdentification,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies httpinstr.HTTPer
func (h *HTTPWrapper) RT() httpinstr.RouteTable {
	return h.RouteTable
}

func respondWeight(w http.ResponseWriter, wt Weight, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wt)
}

// HTTPWeigh reads a stable weight and sends it back as JSON
func (h *HTTPWrapper) HTTPWeigh(w http.ResponseWriter, r *http.Request) {
	wt, err := h.Weigh()
	respondWeight(w, wt, err)
}

// HTTPWeighImmediate reads the current weight without waiting for stability
func (h *HTTPWrapper) HTTPWeighImmediate(w http.ResponseWriter, r *http.Request) {
	wt, err := h.WeighImmediate()
	respondWeight(w, wt, err)
}

// HTTPZero zeroes the balance
func (h *HTTPWrapper) HTTPZero(w http.ResponseWriter, r *http.Request) {
	if err := h.Zero(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPTare tares the balance and returns the stored tare weight
func (h *HTTPWrapper) HTTPTare(w http.ResponseWriter, r *http.Request) {
	wt, err := h.Tare()
	respondWeight(w, wt, err)
}

// HTTPIdentification returns the balance model identification
func (h *HTTPWrapper) HTTPIdentification(w http.ResponseWriter, r *http.Request) {
	id, err := h.Identification()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}
