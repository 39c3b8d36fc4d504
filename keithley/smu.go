// Package keithley provides an interface to Keithley source-measure units
package keithley

import (
	"math"
	"time"

	"github.jpl.nasa.gov/bdube/gobench/comm"
	"github.jpl.nasa.gov/bdube/gobench/instr"
	"github.jpl.nasa.gov/bdube/gobench/scpi"
)

var sourceFunctions = instr.NewBiMap(map[interface{}]string{
	"voltage": "VOLT",
	"current": "CURR",
})

// smuTable is the command table of the 2400 family, shared read-only by
// every SMU instance
var smuTable = map[string]instr.CommandSpec{
	"source_function": {
		Query: "SOUR:FUNC?",
		Write: "SOUR:FUNC %s",
		Map:   sourceFunctions,
	},
	"voltage_range": {
		Query:  "SOUR:VOLT:RANG?",
		Write:  "SOUR:VOLT:RANG %s",
		Domain: instr.TruncatedSet{Values: []float64{0.2, 2, 20, 200}},
		Cast:   instr.CastFloat,
	},
	"voltage_level": {
		Query:  "SOUR:VOLT:LEV?",
		Write:  "SOUR:VOLT:LEV %s",
		Domain: instr.Range{Lo: -210, Hi: 210},
		Cast:   instr.CastFloat,
	},
	"current_compliance": {
		Query:  "SENS:CURR:PROT?",
		Write:  "SENS:CURR:PROT %s",
		Domain: instr.Range{Lo: 1e-9, Hi: 1.05, Sentinels: []string{"MIN", "MAX", "DEF"}},
		Cast:   instr.CastFloat,
	},
	"output": {
		Query: "OUTP?",
		Write: "OUTP %s",
		Map:   instr.OnOff(),
	},
	"four_wire": {
		Query: "SYST:RSEN?",
		Write: "SYST:RSEN %s",
		Map:   instr.OnOff(),
	},
	"measurement": {
		Query: "READ?",
		Cast:  instr.CastFloat,
	},
	"reset": {
		Write: "*RST",
	},
}

// SMU is a remote interface to the 2400 series and other source-measure
// units with the same SCPI interface
type SMU struct {
	*instr.Facade
}

// NewSMU creates a new SMU instance.  The 2400 is driven over a GPIB-LAN
// gateway or terminal server, so the transport is a pooled TCP connection
// with handshaking on writes.
func NewSMU(addr string, log instr.Logger) *SMU {
	maker := comm.BackingOffTCPConnMaker(addr, time.Second)
	pool := comm.NewPool(1, 10*time.Second, maker)
	tx := &scpi.SCPI{Pool: pool, Handshaking: true}
	return &SMU{instr.NewFacade("keithley-smu", tx, smuTable, log)}
}

// NewSMUTransport binds the driver to an existing transport, for tests and
// nonstandard gateways
func NewSMUTransport(tx instr.Transport, log instr.Logger) *SMU {
	return &SMU{instr.NewFacade("keithley-smu", tx, smuTable, log)}
}

// SourceVoltage configures the unit to source volts V with compliance
// limit amps A and enables the output.  Steps are validated one at a time;
// the first failure aborts the sequence with the output untouched.
func (s *SMU) SourceVoltage(volts, compliance float64) error {
	if err := s.Set("source_function", "voltage"); err != nil {
		return err
	}
	if err := s.Set("voltage_range", math.Abs(volts)); err != nil {
		return err
	}
	if err := s.Set("current_compliance", compliance); err != nil {
		return err
	}
	if err := s.Set("voltage_level", volts); err != nil {
		return err
	}
	return s.Set("output", true)
}

// OutputOff disables the source output
func (s *SMU) OutputOff() error {
	return s.Set("output", false)
}

// Measure takes a reading with the current source and sense configuration
func (s *SMU) Measure() (float64, error) {
	return s.GetFloat("measurement")
}

// Reset restores the power-on configuration
func (s *SMU) Reset() error {
	return s.Trigger("reset")
}
