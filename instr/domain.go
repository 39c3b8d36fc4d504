package instr

import (
	"strings"

	"github.com/ansel1/merry"
)

/*Domain is the set of values a writeable property accepts.

Accept validates a caller-supplied value and returns the value that will
actually be sent.  Domains are pure; they never touch the transport.  The
distinction between clamping and rejecting kinds is deliberate and is
declared per property, matching what each instrument's manual specifies:

	Range         clamps numerics into [Lo, Hi]
	DiscreteSet   rejects anything not equal to a member
	TruncatedSet  rounds up to the next member, rejects above the max
	Union         accepts if any sub-domain accepts
*/
type Domain interface {
	Accept(v interface{}) (interface{}, error)
}

// toFloat widens the numeric types a caller plausibly hands us
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// Range is a clamping numeric domain.  Out of range values are truncated to
// the nearest bound, not rejected.  Sentinels (e.g. "MIN", "MAX", "DEF")
// bypass clamping and pass through verbatim.
type Range struct {
	Lo, Hi    float64
	Sentinels []string
}

// Accept implements Domain
func (r Range) Accept(v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		for _, sent := range r.Sentinels {
			if strings.EqualFold(s, sent) {
				return s, nil
			}
		}
		return nil, merry.Appendf(ErrInvalidValue.Here(), "%q is not one of the allowed tokens %v", s, r.Sentinels)
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, merry.Appendf(ErrInvalidValue.Here(), "%v is not numeric", v)
	}
	if f < r.Lo {
		f = r.Lo
	} else if f > r.Hi {
		f = r.Hi
	}
	return f, nil
}

// DiscreteSet is a strict enumerated domain.  The value must equal one of
// the members; the canonical member is returned, so string comparisons are
// case insensitive in the way SCPI mnemonics are.
type DiscreteSet struct {
	Values []interface{}
}

// Accept implements Domain
func (d DiscreteSet) Accept(v interface{}) (interface{}, error) {
	for _, m := range d.Values {
		if equalMember(v, m) {
			return m, nil
		}
	}
	return nil, merry.Appendf(ErrInvalidValue.Here(), "%v is not a member of %v", v, d.Values)
}

func equalMember(v, m interface{}) bool {
	if vs, ok := v.(string); ok {
		if ms, ok := m.(string); ok {
			return strings.EqualFold(vs, ms)
		}
		return false
	}
	vf, vok := toFloat(v)
	mf, mok := toFloat(m)
	if vok && mok {
		return vf == mf
	}
	return v == m
}

// TruncatedSet is an enumerated numeric domain, members sorted ascending.
// Values are rounded up to the nearest member; values above the maximum
// are rejected.  This matches range selection on instruments: asking for
// 1.5 V on ranges (0.1, 1, 10, ...) must select the 10 V range.
type TruncatedSet struct {
	Values []float64
}

// Accept implements Domain
func (t TruncatedSet) Accept(v interface{}) (interface{}, error) {
	f, ok := toFloat(v)
	if !ok {
		return nil, merry.Appendf(ErrInvalidValue.Here(), "%v is not numeric", v)
	}
	for _, m := range t.Values {
		if f <= m {
			return m, nil
		}
	}
	return nil, merry.Appendf(ErrInvalidValue.Here(), "%v exceeds the largest member %v", v, t.Values[len(t.Values)-1])
}

// Union is a joined domain which accepts a value if any sub-domain accepts
// it, first match wins.  Used for properties that take either a numeric
// range or a set of mnemonic tokens.
type Union []Domain

// Accept implements Domain
func (u Union) Accept(v interface{}) (interface{}, error) {
	for _, d := range u {
		if out, err := d.Accept(v); err == nil {
			return out, nil
		}
	}
	return nil, merry.Appendf(ErrInvalidValue.Here(), "%v rejected by every sub-domain", v)
}
