package instr

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ansel1/merry"
)

// Transport is the channel to one physical device.  Implementations own
// timeout and connection lifecycle; the core never manages cabling or byte
// framing.  comm.RemoteDevice and scpi.SCPI both satisfy it.
type Transport interface {
	// WriteLine sends one line of text, no reply expected
	WriteLine(cmd string) error

	// Ask sends one line of text and returns the one-line reply
	Ask(cmd string) (string, error)
}

// TimeoutSetter is optionally implemented by transports whose timeout can
// be adjusted per call.  SetTimeout returns the previous value so callers
// can restore it.
type TimeoutSetter interface {
	SetTimeout(time.Duration) time.Duration
}

// DefaultDrainLimit bounds the error-queue drain loop when the caller
// passes zero
const DefaultDrainLimit = 10 * time.Second

/*Facade binds a command table to a transport and interprets get/set/trigger
against it.  One Facade owns its transport exclusively; operations are
strictly sequential request/response (the protocols are half duplex).
Tables are fixed at driver definition time and may be shared read-only by
every instrument of the same model.
*/
type Facade struct {
	// Name identifies the instrument in logs, e.g. "dmm1"
	Name string

	// ErrorQuery is the command that pops one entry from the device's
	// error queue.  The SCPI default suits most instruments.
	ErrorQuery string

	tx    Transport
	table map[string]CommandSpec
	log   Logger
}

// NewFacade binds table to tx.  log may be nil, in which case nothing is
// logged.
func NewFacade(name string, tx Transport, table map[string]CommandSpec, log Logger) *Facade {
	if log == nil {
		log = NopLogger
	}
	return &Facade{
		Name:       name,
		ErrorQuery: "SYST:ERR?",
		tx:         tx,
		table:      table,
		log:        log}
}

// Properties lists the property names in the command table, sorted
func (f *Facade) Properties() []string {
	out := make([]string, 0, len(f.table))
	for k := range f.table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Spec returns the command spec for a property, and whether it exists
func (f *Facade) Spec(prop string) (CommandSpec, bool) {
	c, ok := f.table[prop]
	return c, ok
}

func (f *Facade) spec(prop string) (CommandSpec, error) {
	c, ok := f.table[prop]
	if !ok {
		return c, merry.Appendf(ErrUnknownProperty.Here(), "%s has no property %q", f.Name, prop)
	}
	return c, nil
}

// Get queries a property and returns its decoded value
func (f *Facade) Get(prop string) (interface{}, error) {
	c, err := f.spec(prop)
	if err != nil {
		return nil, err
	}
	if !c.CanRead() {
		return nil, merry.Appendf(ErrWriteOnly.Here(), "%s.%s", f.Name, prop)
	}
	resp, err := f.tx.Ask(c.Query)
	if err != nil {
		return nil, merry.Appendf(ErrCommunication.Here(), "%s.%s: %v", f.Name, prop, err)
	}
	return c.decode(strings.TrimSpace(resp))
}

// Set validates a value against a property's domain and writes it to the
// device.  Validation happens strictly before any bytes are sent.
func (f *Facade) Set(prop string, v interface{}) error {
	c, err := f.spec(prop)
	if err != nil {
		return err
	}
	if !c.CanWrite() {
		return merry.Appendf(ErrReadOnly.Here(), "%s.%s", f.Name, prop)
	}
	line, err := c.encode(v)
	if err != nil {
		return err
	}
	if err := f.tx.WriteLine(line); err != nil {
		return merry.Appendf(ErrCommunication.Here(), "%s.%s: %v", f.Name, prop, err)
	}
	return nil
}

// SetRead is Set for the rare compound commands whose write form also
// elicits a reply; the reply is decoded through the same path as Get.
func (f *Facade) SetRead(prop string, v interface{}) (interface{}, error) {
	c, err := f.spec(prop)
	if err != nil {
		return nil, err
	}
	if !c.CanWrite() {
		return nil, merry.Appendf(ErrReadOnly.Here(), "%s.%s", f.Name, prop)
	}
	line, err := c.encode(v)
	if err != nil {
		return nil, err
	}
	resp, err := f.tx.Ask(line)
	if err != nil {
		return nil, merry.Appendf(ErrCommunication.Here(), "%s.%s: %v", f.Name, prop, err)
	}
	return c.decode(strings.TrimSpace(resp))
}

// Trigger sends a property's bare command string; no value, no reply.
// Properties whose write string takes a value are rejected, use Set.
func (f *Facade) Trigger(prop string) error {
	c, err := f.spec(prop)
	if err != nil {
		return err
	}
	if !c.CanWrite() {
		return merry.Appendf(ErrReadOnly.Here(), "%s.%s", f.Name, prop)
	}
	if strings.Contains(c.Write, "%") {
		return merry.Appendf(ErrInvalidValue.Here(), "%s.%s takes a value, use Set", f.Name, prop)
	}
	if err := f.tx.WriteLine(c.Write); err != nil {
		return merry.Appendf(ErrCommunication.Here(), "%s.%s: %v", f.Name, prop, err)
	}
	return nil
}

// GetFloat is Get with a float64 return
func (f *Facade) GetFloat(prop string) (float64, error) {
	v, err := f.Get(prop)
	if err != nil {
		return 0, err
	}
	if out, ok := toFloat(v); ok {
		return out, nil
	}
	return 0, merry.Appendf(ErrReplyFormat.Here(), "%s.%s: %v is not a float", f.Name, prop, v)
}

// GetInt is Get with an int return
func (f *Facade) GetInt(prop string) (int, error) {
	v, err := f.Get(prop)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, merry.Appendf(ErrReplyFormat.Here(), "%s.%s: %v is not an int", f.Name, prop, v)
}

// GetBool is Get with a bool return
func (f *Facade) GetBool(prop string) (bool, error) {
	v, err := f.Get(prop)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, merry.Appendf(ErrReplyFormat.Here(), "%s.%s: %v is not a bool", f.Name, prop, v)
}

// GetString is Get with a string return
func (f *Facade) GetString(prop string) (string, error) {
	v, err := f.Get(prop)
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", merry.Appendf(ErrReplyFormat.Here(), "%s.%s: %v is not a string", f.Name, prop, v)
}

// Raw passes a command through to the device verbatim.  Commands containing
// a ? are treated as queries and the reply returned.
func (f *Facade) Raw(cmd string) (string, error) {
	if strings.Contains(cmd, "?") {
		return f.tx.Ask(cmd)
	}
	return "", f.tx.WriteLine(cmd)
}

// DrainErrors pops the device's error queue until it reports no error or
// limit elapses (DefaultDrainLimit when zero), logging each entry.  Queued
// device errors are historical, not exceptional to the current call, so
// this never returns an error; the count of drained entries is returned
// for observability.
func (f *Facade) DrainErrors(limit time.Duration) int {
	if limit == 0 {
		limit = DefaultDrainLimit
	}
	start := time.Now()
	count := 0
	for {
		if time.Since(start) > limit {
			f.log.Printf("%s: error queue drain timed out after %v, %d errors so far", f.Name, limit, count)
			return count
		}
		resp, err := f.tx.Ask(f.ErrorQuery)
		if err != nil {
			f.log.Printf("%s: error queue drain aborted: %v", f.Name, err)
			return count
		}
		code, msg := splitErrorReply(resp)
		if code == 0 {
			return count
		}
		count++
		f.log.Printf("%s: device error %d: %s", f.Name, code, msg)
	}
}

// splitErrorReply parses a SYST:ERR? reply, e.g. `-113,"Undefined header"`
// or `+0,"No error"`.  Unparseable replies are treated as errors so the
// drain loop does not spin forever on garbage.
func splitErrorReply(resp string) (int, string) {
	resp = strings.TrimSpace(resp)
	pieces := strings.SplitN(resp, ",", 2)
	code, err := strconv.Atoi(strings.TrimSpace(pieces[0]))
	if err != nil {
		return -1, resp
	}
	msg := ""
	if len(pieces) > 1 {
		msg = strings.Trim(pieces[1], `" `)
	}
	return code, msg
}

// SelfTest runs the device's internal self test (*TST?), which can take
// tens of seconds on some instruments; timeout overrides the transport
// timeout for the duration of the call when the transport supports it.
// A reply of 0 is a pass, anything else is returned as an error.
func (f *Facade) SelfTest(timeout time.Duration) error {
	if ts, ok := f.tx.(TimeoutSetter); ok && timeout > 0 {
		prev := ts.SetTimeout(timeout)
		defer ts.SetTimeout(prev)
	}
	resp, err := f.tx.Ask("*TST?")
	if err != nil {
		return merry.Appendf(ErrCommunication.Here(), "%s: self test: %v", f.Name, err)
	}
	resp = strings.TrimSpace(resp)
	if code, err := strconv.Atoi(resp); err == nil && code == 0 {
		return nil
	}
	return merry.Errorf("%s: self test failed with result %s", f.Name, resp)
}

// Identification returns the *IDN? string of the device
func (f *Facade) Identification() (string, error) {
	resp, err := f.tx.Ask("*IDN?")
	if err != nil {
		return "", merry.Appendf(ErrCommunication.Here(), "%s: *IDN?: %v", f.Name, err)
	}
	return strings.TrimSpace(resp), nil
}
