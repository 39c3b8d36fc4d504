package httpinstr_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"goji.io"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/gobench/httpinstr"
	"github.jpl.nasa.gov/bdube/gobench/instr"
)

type fakeTransport struct {
	written []string
	replies []string
}

func (f *fakeTransport) WriteLine(cmd string) error {
	f.written = append(f.written, cmd)
	return nil
}

func (f *fakeTransport) Ask(cmd string) (string, error) {
	if len(f.replies) == 0 {
		return "", fmt.Errorf("no scripted reply for %q", cmd)
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func table() map[string]instr.CommandSpec {
	return map[string]instr.CommandSpec{
		"output": {
			Query: "OUTP?",
			Write: "OUTP %s",
			Map:   instr.OnOff(),
		},
		"voltage_range": {
			Query:  "SOUR:VOLT:RANG?",
			Write:  "SOUR:VOLT:RANG %s",
			Domain: instr.TruncatedSet{Values: []float64{0.1, 1, 10, 100, 1000}},
			Cast:   instr.CastFloat,
		},
		"reset": {
			Write: "*RST",
		},
	}
}

func serve(tx instr.Transport) (*httptest.Server, *httpinstr.Wrapper) {
	f := instr.NewFacade("smu1", tx, table(), nil)
	w := httpinstr.NewWrapper(f)
	mux := goji.NewMux()
	httpinstr.Bind(w, mux)
	return httptest.NewServer(mux), w
}

func TestGetPropEncodesValue(t *testing.T) {
	tx := &fakeTransport{replies: []string{"1"}}
	srv, _ := serve(tx)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/prop/output")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	assert.JSONEq(t, `{"value": true}`, string(buf[:n]))
}

func TestSetPropWritesCommand(t *testing.T) {
	tx := &fakeTransport{}
	srv, _ := serve(tx)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/prop/voltage_range", "application/json",
		strings.NewReader(`{"f64": 1.5}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"SOUR:VOLT:RANG 10"}, tx.written)
}

func TestSetPropRejectsBadValueWith400(t *testing.T) {
	tx := &fakeTransport{}
	srv, _ := serve(tx)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/prop/voltage_range", "application/json",
		strings.NewReader(`{"f64": 5000}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, tx.written)
}

func TestTriggerRoute(t *testing.T) {
	tx := &fakeTransport{}
	srv, _ := serve(tx)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/trigger/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"*RST"}, tx.written)
}

func TestLockerBouncesProtectedRoutes(t *testing.T) {
	tx := &fakeTransport{replies: []string{"1"}}
	f := instr.NewFacade("smu1", tx, table(), nil)
	w := httpinstr.NewWrapper(f)
	l := httpinstr.NewLocker()
	httpinstr.InjectLocker(w, l)
	mux := goji.NewMux()
	httpinstr.Bind(w, mux)
	mux.Use(l.Check)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l.Lock()
	resp, err := http.Get(srv.URL + "/prop/output")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	// the lock route itself stays reachable so the lock can be released
	resp, err = http.Get(srv.URL + "/lock")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	l.Unlock()
	resp, err = http.Get(srv.URL + "/prop/output")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
