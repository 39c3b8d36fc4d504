package instr

import (
	"testing"

	"github.com/ansel1/merry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeClampsOutOfBoundsAndPassesInBounds(t *testing.T) {
	r := Range{Lo: 0.1, Hi: 100}
	cases := []struct {
		in   float64
		want float64
	}{
		{in: 50, want: 50},
		{in: 0.1, want: 0.1},
		{in: 100, want: 100},
		{in: 0.0001, want: 0.1},
		{in: 1e6, want: 100},
		{in: -5, want: 0.1},
	}
	for _, tc := range cases {
		got, err := r.Accept(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestRangeSentinelsBypassClamping(t *testing.T) {
	r := Range{Lo: 0.1, Hi: 100, Sentinels: []string{"MIN", "MAX", "DEF"}}
	got, err := r.Accept("max")
	require.NoError(t, err)
	assert.Equal(t, "max", got)

	_, err = r.Accept("AUTO")
	assert.True(t, merry.Is(err, ErrInvalidValue))
}

func TestDiscreteSetStrict(t *testing.T) {
	d := DiscreteSet{Values: []interface{}{"VOLT", "CURR", "RES"}}
	got, err := d.Accept("curr")
	require.NoError(t, err)
	assert.Equal(t, "CURR", got, "the canonical member should be returned")

	_, err = d.Accept("FREQ")
	assert.True(t, merry.Is(err, ErrInvalidValue))
}

func TestDiscreteSetNumericMembers(t *testing.T) {
	d := DiscreteSet{Values: []interface{}{0.02, 0.2, 1.0, 10.0, 100.0}}
	got, err := d.Accept(10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	_, err = d.Accept(5)
	assert.True(t, merry.Is(err, ErrInvalidValue))
}

func TestTruncatedSetRoundsUp(t *testing.T) {
	ts := TruncatedSet{Values: []float64{0.1, 1, 10, 100, 1000}}
	cases := []struct {
		in   float64
		want float64
	}{
		{in: 1.5, want: 10},
		{in: 0.05, want: 0.1},
		{in: 10, want: 10},
		{in: 999, want: 1000},
	}
	for _, tc := range cases {
		got, err := ts.Accept(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestTruncatedSetRejectsAboveMax(t *testing.T) {
	ts := TruncatedSet{Values: []float64{0.1, 1, 10, 100, 1000}}
	_, err := ts.Accept(1500.0)
	assert.True(t, merry.Is(err, ErrInvalidValue))
}

func TestUnionAcceptsEitherKind(t *testing.T) {
	u := Union{
		Range{Lo: 0, Hi: 10},
		DiscreteSet{Values: []interface{}{"MIN", "MAX"}},
	}
	got, err := u.Accept(3.5)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)

	got, err = u.Accept("MAX")
	require.NoError(t, err)
	assert.Equal(t, "MAX", got)

	_, err = u.Accept("banana")
	assert.True(t, merry.Is(err, ErrInvalidValue))
}

func TestBiMapRoundTrip(t *testing.T) {
	m := NewBiMap(map[interface{}]string{
		"dc_volts": "VOLT:DC",
		"ac_volts": "VOLT:AC",
		"res_2w":   "RES",
	})
	for _, human := range m.Humans() {
		wire, err := m.ToWire(human)
		require.NoError(t, err)
		back, err := m.FromWire(wire)
		require.NoError(t, err)
		assert.Equal(t, human, back)
	}
}

func TestBiMapUnknownKeysError(t *testing.T) {
	m := OnOff()
	_, err := m.ToWire("sideways")
	assert.True(t, merry.Is(err, ErrInvalidValue))
	_, err = m.FromWire("2")
	assert.True(t, merry.Is(err, ErrReplyFormat))
}
