// Package httpinstr wraps instrument facades in an HTTP interface, so
// clients in any language can drive the bench over JSON.
package httpinstr

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"goji.io"
	"goji.io/pat"

	"github.jpl.nasa.gov/bdube/gobench/instr"
)

// MethodPath is a route table key: one HTTP method on one path
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method/path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns the sorted list of "METHOD path" strings in the table
func (rt RouteTable) Endpoints() []string {
	out := make([]string, 0, len(rt))
	for mp := range rt {
		out = append(out, mp.Method+" "+mp.Path)
	}
	sort.Strings(out)
	return out
}

// HTTPer is a type which can be bound to a mux via its route table
type HTTPer interface {
	RT() RouteTable
}

// Bind attaches an HTTPer's routes to a goji mux
func Bind(h HTTPer, mux *goji.Mux) {
	for mp, handler := range h.RT() {
		switch mp.Method {
		case http.MethodPost:
			mux.HandleFunc(pat.Post(mp.Path), handler)
		default:
			mux.HandleFunc(pat.Get(mp.Path), handler)
		}
	}
}

// StrT is a struct with a single Str field for json de/encoding
type StrT struct {
	Str string `json:"str"`
}

// ValueT is the union body accepted when setting a property; exactly one
// field should be populated, matching the property's type
type ValueT struct {
	F64  *float64 `json:"f64,omitempty"`
	Int  *int     `json:"int,omitempty"`
	Str  *string  `json:"str,omitempty"`
	Bool *bool    `json:"bool,omitempty"`
}

// value returns whichever field was populated
func (v ValueT) value() (interface{}, bool) {
	switch {
	case v.F64 != nil:
		return *v.F64, true
	case v.Int != nil:
		return *v.Int, true
	case v.Str != nil:
		return *v.Str, true
	case v.Bool != nil:
		return *v.Bool, true
	}
	return nil, false
}

// Wrapper provides HTTP bindings on top of a facade's command table.
// Readable properties get a GET route, writeable ones a POST route,
// bare commands a POST trigger route.
type Wrapper struct {
	// Facade is the underlying instrument
	Facade *instr.Facade

	// RouteTable maps method/path pairs to http handlers
	RouteTable RouteTable
}

// NewWrapper returns a new HTTP wrapper with the route table pre-configured
// from the facade's command table
func NewWrapper(f *instr.Facade) *Wrapper {
	w := &Wrapper{Facade: f}
	rt := RouteTable{
		MethodPath{Method: http.MethodGet, Path: "/props"}: w.ListProps,
		MethodPath{Method: http.MethodPost, Path: "/raw"}:  w.Raw,
		MethodPath{Method: http.MethodGet, Path: "/idn"}:   w.Identification,
	}
	for _, prop := range f.Properties() {
		spec, _ := f.Spec(prop)
		if spec.CanRead() {
			rt[MethodPath{Method: http.MethodGet, Path: "/prop/" + prop}] = w.get(prop)
		}
		if spec.CanWrite() {
			if strings.Contains(spec.Write, "%") {
				rt[MethodPath{Method: http.MethodPost, Path: "/prop/" + prop}] = w.set(prop)
			} else {
				rt[MethodPath{Method: http.MethodPost, Path: "/trigger/" + prop}] = w.trigger(prop)
			}
		}
	}
	w.RouteTable = rt
	return w
}

// RT satisfies HTTPer
func (w *Wrapper) RT() RouteTable {
	return w.RouteTable
}

func encodeValue(wr http.ResponseWriter, v interface{}) {
	wr.Header().Set("Content-Type", "application/json")
	json.NewEncoder(wr).Encode(map[string]interface{}{"value": v})
}

// ListProps returns the property names of the command table
func (w *Wrapper) ListProps(wr http.ResponseWriter, r *http.Request) {
	encodeValue(wr, w.Facade.Properties())
}

// Identification returns the *IDN? string of the device
func (w *Wrapper) Identification(wr http.ResponseWriter, r *http.Request) {
	id, err := w.Facade.Identification()
	if err != nil {
		http.Error(wr, err.Error(), http.StatusInternalServerError)
		return
	}
	encodeValue(wr, id)
}

// Raw passes a command through to the device verbatim
func (w *Wrapper) Raw(wr http.ResponseWriter, r *http.Request) {
	str := StrT{}
	err := json.NewDecoder(r.Body).Decode(&str)
	defer r.Body.Close()
	if err != nil {
		http.Error(wr, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := w.Facade.Raw(str.Str)
	if err != nil {
		http.Error(wr, err.Error(), http.StatusInternalServerError)
		return
	}
	encodeValue(wr, resp)
}

func (w *Wrapper) get(prop string) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		v, err := w.Facade.Get(prop)
		if err != nil {
			http.Error(wr, err.Error(), http.StatusInternalServerError)
			return
		}
		encodeValue(wr, v)
	}
}

func (w *Wrapper) set(prop string) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		body := ValueT{}
		err := json.NewDecoder(r.Body).Decode(&body)
		defer r.Body.Close()
		if err != nil {
			http.Error(wr, err.Error(), http.StatusBadRequest)
			return
		}
		v, ok := body.value()
		if !ok {
			http.Error(wr, "body must contain one of f64, int, str, bool", http.StatusBadRequest)
			return
		}
		if err := w.Facade.Set(prop, v); err != nil {
			status := http.StatusInternalServerError
			if merryIsClientFault(err) {
				status = http.StatusBadRequest
			}
			http.Error(wr, err.Error(), status)
			return
		}
		wr.WriteHeader(http.StatusOK)
	}
}

func (w *Wrapper) trigger(prop string) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		if err := w.Facade.Trigger(prop); err != nil {
			http.Error(wr, err.Error(), http.StatusInternalServerError)
			return
		}
		wr.WriteHeader(http.StatusOK)
	}
}
