package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"
	"goji.io"
	"goji.io/pat"

	"github.jpl.nasa.gov/bdube/gobench/agilent"
	"github.jpl.nasa.gov/bdube/gobench/httpinstr"
	"github.jpl.nasa.gov/bdube/gobench/keithley"
	"github.jpl.nasa.gov/bdube/gobench/keysight"
	"github.jpl.nasa.gov/bdube/gobench/mettler"
)

// ObjSetup holds the typical triplet of args for a New<device> call.
// Serial is not always used, and need not be populated in the config file
// if not used.
type ObjSetup struct {
	// Addr holds the network or filesystem address of the remote device,
	// e.g. 192.168.100.123:2006 for a device connected to port 6
	// on a digi portserver, or /dev/ttyS4 for an RS232 device on a serial cable
	Addr string `yaml:"Addr"`

	// Endpoint is the final "directory" the device's routes are served under,
	// ex. Endpoint="/bench/dmm" will produce routes of /bench/dmm/prop/reading, etc.
	Endpoint string `yaml:"Endpoint"`

	// Serial determines if the connection is serial/RS232 (True) or TCP (False)
	Serial bool `yaml:"Serial"`

	// Type is the "type" of the object, e.g. 34401A
	Type string `yaml:"Type"`
}

// Config is a struct that holds the initialization parameters for various
// HTTP adapted devices.  It is populated from the yaml config file.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Nodes is the list of nodes to set up
	Nodes []ObjSetup `yaml:"Nodes"`
}

// sanitizeEndpoint prepares a URL for submux mounting, "bench/dmm" => "/bench/dmm/*"
func sanitizeEndpoint(stem string) string {
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	stem = strings.TrimSuffix(stem, "/")
	return stem + "/*"
}

// logRequests is a middleware that prints one line per request served
func logRequests(log *structlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

// BuildMux constructs a goji mux with one submux per configured node.
// The mux serves a special route, /endpoints, which returns a map of
// node mount points to their routes as JSON.
func BuildMux(c Config, log *structlog.Logger) (*goji.Mux, error) {
	root := goji.NewMux()
	root.Use(logRequests(log))
	supergraph := map[string][]string{}

	for _, node := range c.Nodes {
		var httper httpinstr.HTTPer
		typ := strings.ToLower(node.Type)
		switch typ {
		case "dmm", "34401a", "agilent-dmm":
			dmm := agilent.NewMultimeter(node.Addr, node.Serial, log)
			httper = httpinstr.NewWrapper(dmm.Facade)

		case "smu", "2400", "keithley", "sourcemeter":
			smu := keithley.NewSMU(node.Addr, log)
			httper = httpinstr.NewWrapper(smu.Facade)

		case "daq", "34970a", "switch", "keysight-daq":
			daq := keysight.NewDAQ(node.Addr)
			httper = keysight.NewHTTPWrapper(daq)

		case "balance", "mettler", "sics":
			bal := mettler.NewBalance(node.Addr, node.Serial)
			httper = mettler.NewHTTPWrapper(bal)

		default:
			return nil, merry.Errorf("node type %q not understood", node.Type)
		}

		stem := sanitizeEndpoint(node.Endpoint)
		supergraph[stem] = httper.RT().Endpoints()

		// one lock per node, so an instrument can be reserved for a user
		lock := httpinstr.NewLocker()
		httpinstr.InjectLocker(httper, lock)

		sub := goji.SubMux()
		sub.Use(lock.Check)
		httpinstr.Bind(httper, sub)
		root.Handle(pat.New(stem), sub)
	}
	root.HandleFunc(pat.Get("/endpoints"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root, nil
}
