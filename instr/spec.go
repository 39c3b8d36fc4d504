package instr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ansel1/merry"
)

// Cast converts a raw reply string to a typed value
type Cast func(string) (interface{}, error)

// Process transforms a value before it is written or after it is read,
// for compound encodings (e.g. splitting a "value unit" reply)
type Process func(interface{}) (interface{}, error)

// CastFloat parses the reply as a float64
func CastFloat(s string) (interface{}, error) {
	return strconv.ParseFloat(s, 64)
}

// CastInt parses the reply as an int.  SCPI integers frequently arrive in
// exponential notation ("+1.00000000E+01"), so parse via float.
func CastInt(s string) (interface{}, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return int(f), nil
}

// CastBool parses the reply as a bool, accepting 0/1/ON/OFF
func CastBool(s string) (interface{}, error) {
	switch strings.ToUpper(s) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// CastString returns the reply as-is
func CastString(s string) (interface{}, error) {
	return s, nil
}

/*CommandSpec is one entry of an instrument's command table: the declarative
binding between a property name and the device's command dialect.

Query is the full query string ("SOUR:VOLT:RANG?"), empty for write-only
properties.  Write contains exactly one %s verb which receives the wire
token of the validated value ("SOUR:VOLT:RANG %s"), or no verb at all for
bare trigger commands ("*RST"); it is empty for read-only properties.  At
least one of the two must be present.

Validation order on writes is fixed: Pre, then Map or Domain, then
formatting, then the transport.  An invalid value never reaches the device;
a malformed command can desynchronize the device's reply queue, which is a
much worse failure than a local error return.
*/
type CommandSpec struct {
	Query string
	Write string

	// Domain validates values on write when Map is nil
	Domain Domain

	// Map is used instead of Domain when the legal values are an
	// enumerated human <-> wire mapping; it also decodes replies
	Map *BiMap

	// Cast converts raw replies when Map is nil; replies are returned as
	// trimmed strings when both are nil
	Cast Cast

	Pre  Process
	Post Process
}

// CanRead indicates the property has a query form
func (c CommandSpec) CanRead() bool { return c.Query != "" }

// CanWrite indicates the property has a command form
func (c CommandSpec) CanWrite() bool { return c.Write != "" }

// wireFormat renders a validated value as the ASCII token placed in the
// write template
func wireFormat(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'G', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'G', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case bool:
		if n {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}

// fill renders the write template with the wire token
func (c CommandSpec) fill(wire interface{}) string {
	if !strings.Contains(c.Write, "%") {
		return c.Write
	}
	return fmt.Sprintf(c.Write, wireFormat(wire))
}

// encode runs the write-side half of the binding: Pre, then Map or Domain,
// and returns the full command line to send
func (c CommandSpec) encode(v interface{}) (string, error) {
	var err error
	if c.Pre != nil {
		v, err = c.Pre(v)
		if err != nil {
			return "", err
		}
	}
	wire := v
	if c.Map != nil {
		s, err := c.Map.ToWire(v)
		if err != nil {
			return "", err
		}
		wire = s
	} else if c.Domain != nil {
		wire, err = c.Domain.Accept(v)
		if err != nil {
			return "", err
		}
	}
	return c.fill(wire), nil
}

// decode runs the read-side half of the binding over a trimmed reply line
func (c CommandSpec) decode(resp string) (interface{}, error) {
	var (
		v   interface{} = resp
		err error
	)
	if c.Map != nil {
		// SCPI mnemonic replies are frequently quoted, e.g. FUNC? -> "VOLT:DC"
		v, err = c.Map.FromWire(strings.Trim(resp, `"`))
		if err != nil {
			return nil, err
		}
	} else if c.Cast != nil {
		v, err = c.Cast(resp)
		if err != nil {
			return nil, merry.Appendf(ErrReplyFormat.Here(), "%q: %v", resp, err)
		}
	}
	if c.Post != nil {
		v, err = c.Post(v)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}
