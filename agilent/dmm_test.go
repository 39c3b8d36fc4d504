package agilent_test

import (
	"fmt"
	"testing"

	"github.com/ansel1/merry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/gobench/agilent"
	"github.jpl.nasa.gov/bdube/gobench/instr"
)

type fakeTransport struct {
	written []string
	asked   []string
	replies []string
}

func (f *fakeTransport) WriteLine(cmd string) error {
	f.written = append(f.written, cmd)
	return nil
}

func (f *fakeTransport) Ask(cmd string) (string, error) {
	f.asked = append(f.asked, cmd)
	if len(f.replies) == 0 {
		return "", fmt.Errorf("no scripted reply for %q", cmd)
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func TestConfigureMeasurementSendsThreeCommands(t *testing.T) {
	tx := &fakeTransport{}
	m := agilent.NewMultimeterTransport(tx, nil)
	err := m.ConfigureMeasurement("dc_volts", 1.5, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`SENS:FUNC "VOLT:DC"`,
		"SENS:VOLT:DC:RANG 10",
		"SENS:VOLT:DC:NPLC 10",
	}, tx.written)
}

func TestConfigureMeasurementAbortsOnBadFunction(t *testing.T) {
	tx := &fakeTransport{}
	m := agilent.NewMultimeterTransport(tx, nil)
	err := m.ConfigureMeasurement("emf_flux", 1, 1)
	assert.True(t, merry.Is(err, instr.ErrInvalidValue))
	assert.Empty(t, tx.written, "a failed step must abort the sequence before any transport I/O")
}

func TestGetFunctionDecodesQuotedMnemonic(t *testing.T) {
	tx := &fakeTransport{replies: []string{`"VOLT:DC"`}}
	m := agilent.NewMultimeterTransport(tx, nil)
	fn, err := m.GetFunction()
	require.NoError(t, err)
	assert.Equal(t, "dc_volts", fn)
}

func TestMeasureDCVoltsCompound(t *testing.T) {
	tx := &fakeTransport{replies: []string{"+1.23450000E+00"}}
	m := agilent.NewMultimeterTransport(tx, nil)
	v, err := m.MeasureDCVolts("DEF")
	require.NoError(t, err)
	assert.InDelta(t, 1.2345, v, 1e-9)
	assert.Equal(t, []string{"MEAS:VOLT:DC? DEF"}, tx.asked)
}

func TestNPLCTokenOrNumber(t *testing.T) {
	tx := &fakeTransport{}
	m := agilent.NewMultimeterTransport(tx, nil)
	require.NoError(t, m.Set("nplc", "MAX"))
	require.NoError(t, m.Set("nplc", 0.5))
	assert.Equal(t, []string{
		"SENS:VOLT:DC:NPLC MAX",
		"SENS:VOLT:DC:NPLC 1",
	}, tx.written)
}

func TestReadOnlyReading(t *testing.T) {
	tx := &fakeTransport{}
	m := agilent.NewMultimeterTransport(tx, nil)
	err := m.Set("reading", 1.0)
	assert.True(t, merry.Is(err, instr.ErrReadOnly))
}
