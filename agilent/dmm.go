// Package agilent provides an interface to agilent test and measurement equipment
package agilent

import (
	"time"

	"github.com/tarm/serial"

	"github.jpl.nasa.gov/bdube/gobench/comm"
	"github.jpl.nasa.gov/bdube/gobench/instr"
)

// makeSerConf makes a new serial.Config with correct parity, baud, etc, set.
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        9600,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop2,
		ReadTimeout: 10 * time.Second}
}

// measurementFunctions maps human function names to the SENSe subsystem
// mnemonics of the 34401A family
var measurementFunctions = instr.NewBiMap(map[interface{}]string{
	"dc_volts":      "VOLT:DC",
	"ac_volts":      "VOLT:AC",
	"dc_current":    "CURR:DC",
	"ac_current":    "CURR:AC",
	"resistance_2w": "RES",
	"resistance_4w": "FRES",
	"frequency":     "FREQ",
	"period":        "PER",
	"continuity":    "CONT",
	"diode":         "DIOD",
})

var triggerSources = instr.NewBiMap(map[interface{}]string{
	"immediate": "IMM",
	"external":  "EXT",
	"bus":       "BUS",
})

// dmmTable is the command table of the 34401A family.  It is fixed at
// package init and shared read-only by every Multimeter instance.
var dmmTable = map[string]instr.CommandSpec{
	"function": {
		Query: "SENS:FUNC?",
		Write: `SENS:FUNC "%s"`,
		Map:   measurementFunctions,
	},
	"range": {
		Query:  "SENS:VOLT:DC:RANG?",
		Write:  "SENS:VOLT:DC:RANG %s",
		Domain: instr.TruncatedSet{Values: []float64{0.1, 1, 10, 100, 1000}},
		Cast:   instr.CastFloat,
	},
	"autorange": {
		Query: "SENS:VOLT:DC:RANG:AUTO?",
		Write: "SENS:VOLT:DC:RANG:AUTO %s",
		Map:   instr.OnOff(),
	},
	"nplc": {
		Query: "SENS:VOLT:DC:NPLC?",
		Write: "SENS:VOLT:DC:NPLC %s",
		Domain: instr.Union{
			instr.TruncatedSet{Values: []float64{0.02, 0.2, 1, 10, 100}},
			instr.DiscreteSet{Values: []interface{}{"MIN", "MAX"}},
		},
		Cast: instr.CastFloat,
	},
	"autozero": {
		Query: "SENS:ZERO:AUTO?",
		Write: "SENS:ZERO:AUTO %s",
		Map:   instr.OnOff(),
	},
	"trigger_source": {
		Query: "TRIG:SOUR?",
		Write: "TRIG:SOUR %s",
		Map:   triggerSources,
	},
	"trigger_delay": {
		Query:  "TRIG:DEL?",
		Write:  "TRIG:DEL %s",
		Domain: instr.Range{Lo: 0, Hi: 3600, Sentinels: []string{"MIN", "MAX"}},
		Cast:   instr.CastFloat,
	},
	"sample_count": {
		Query:  "SAMP:COUN?",
		Write:  "SAMP:COUN %s",
		Domain: instr.Range{Lo: 1, Hi: 50000},
		Cast:   instr.CastInt,
	},
	"display": {
		Query: "DISP?",
		Write: "DISP %s",
		Map:   instr.OnOff(),
	},
	"reading": {
		Query: "READ?",
		Cast:  instr.CastFloat,
	},
	"measure_dc_volts": {
		Write: "MEAS:VOLT:DC? %s",
		Cast:  instr.CastFloat,
		Domain: instr.Union{
			instr.TruncatedSet{Values: []float64{0.1, 1, 10, 100, 1000}},
			instr.DiscreteSet{Values: []interface{}{"MIN", "MAX", "DEF", "AUTO"}},
		},
	},
	"beep": {
		Write: "SYST:BEEP",
	},
	"reset": {
		Write: "*RST",
	},
}

// Multimeter is an interface to 34401A-class digital multimeters
type Multimeter struct {
	*instr.Facade
}

// NewMultimeter creates a new Multimeter instance with the communication
// set up.  addr is a network address (host:port) or serial device file.
func NewMultimeter(addr string, isSerial bool, log instr.Logger) *Multimeter {
	term := &comm.Terminators{Rx: '\n', Tx: '\n'}
	var cfg *serial.Config
	if isSerial {
		cfg = makeSerConf(addr)
	}
	rd := comm.NewRemoteDevice(addr, isSerial, term, cfg)
	rd.Timeout = 10 * time.Second
	return &Multimeter{instr.NewFacade("agilent-dmm", &rd, dmmTable, log)}
}

// NewMultimeterTransport binds the driver to an existing transport, for
// instruments behind gateways and for tests
func NewMultimeterTransport(tx instr.Transport, log instr.Logger) *Multimeter {
	return &Multimeter{instr.NewFacade("agilent-dmm", tx, dmmTable, log)}
}

// ConfigureMeasurement selects the measurement function, range, and
// integration time in one call.  Each step is validated independently and
// a failure aborts the remaining steps.
func (m *Multimeter) ConfigureMeasurement(function string, rng, nplc float64) error {
	if err := m.Set("function", function); err != nil {
		return err
	}
	if err := m.Set("range", rng); err != nil {
		return err
	}
	return m.Set("nplc", nplc)
}

// GetFunction returns the current measurement function, in the human
// naming of measurementFunctions
func (m *Multimeter) GetFunction() (string, error) {
	return m.GetString("function")
}

// Read triggers a measurement with the current configuration and returns it
func (m *Multimeter) Read() (float64, error) {
	return m.GetFloat("reading")
}

// MeasureDCVolts configures for DC volts on the given range and measures
// in one compound command.  rng may be a number or one of MIN/MAX/DEF/AUTO.
func (m *Multimeter) MeasureDCVolts(rng interface{}) (float64, error) {
	v, err := m.SetRead("measure_dc_volts", rng)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Beep makes the meter beep once
func (m *Multimeter) Beep() error {
	return m.Trigger("beep")
}

// Reset restores the power-on configuration
func (m *Multimeter) Reset() error {
	return m.Trigger("reset")
}
