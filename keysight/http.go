package keysight

import (
	"encoding/json"
	"net/http"
	"strconv"

	"goji.io/pat"

	"github.jpl.nasa.gov/bdube/gobench/httpinstr"
)

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface.
// Bind it to a mux with httpinstr.Bind.
type HTTPWrapper struct {
	// DAQ is the underlying mainframe that is wrapped
	*DAQ

	// RouteTable maps method/path pairs to handlers
	RouteTable httpinstr.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(d *DAQ) *HTTPWrapper {
	w := &HTTPWrapper{DAQ: d}
	rt := httpinstr.RouteTable{
		{Method: http.MethodPost, Path: "/close"}:     w.HTTPClose,
		{Method: http.MethodPost, Path: "/open"}:      w.HTTPOpen,
		{Method: http.MethodGet, Path: "/card/:slot"}: w.HTTPCardType,
		{Method: http.MethodPost, Path: "/scan-list"}: w.HTTPScanList,
		{Method: http.MethodGet, Path: "/scan"}:       w.HTTPScanRead,
		{Method: http.MethodPost, Path: "/raw"}:       w.HTTPRaw,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies httpinstr.HTTPer
func (h *HTTPWrapper) RT() httpinstr.RouteTable {
	return h.RouteTable
}

// channelsT is the json body naming a list of channels
type channelsT struct {
	Channels []int `json:"channels"`
}

func decodeChannels(w http.ResponseWriter, r *http.Request) ([]int, bool) {
	body := channelsT{}
	err := json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return body.Channels, true
}

// HTTPClose closes the channels named in the body
func (h *HTTPWrapper) HTTPClose(w http.ResponseWriter, r *http.Request) {
	chs, ok := decodeChannels(w, r)
	if !ok {
		return
	}
	if err := h.CloseChannels(chs...); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPOpen opens the channels named in the body
func (h *HTTPWrapper) HTTPOpen(w http.ResponseWriter, r *http.Request) {
	chs, ok := decodeChannels(w, r)
	if !ok {
		return
	}
	if err := h.OpenChannels(chs...); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPCardType reports the card model installed in the slot in the URL
func (h *HTTPWrapper) HTTPCardType(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(pat.Param(r, "slot"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	model, err := h.CardType(slot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"model": model})
}

// HTTPScanList configures the scan list from the channels in the body
func (h *HTTPWrapper) HTTPScanList(w http.ResponseWriter, r *http.Request) {
	chs, ok := decodeChannels(w, r)
	if !ok {
		return
	}
	if err := h.ConfigureScanList(chs...); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPScanRead sweeps the scan list once and returns the readings
func (h *HTTPWrapper) HTTPScanRead(w http.ResponseWriter, r *http.Request) {
	data, err := h.ScanRead()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]float64{"readings": data})
}

// HTTPRaw passes a command through to the mainframe verbatim
func (h *HTTPWrapper) HTTPRaw(w http.ResponseWriter, r *http.Request) {
	body := httpinstr.StrT{}
	err := json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := h.Raw(body.Str)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(httpinstr.StrT{Str: resp})
}
