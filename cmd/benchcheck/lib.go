package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.jpl.nasa.gov/bdube/gobench/agilent"
	"github.jpl.nasa.gov/bdube/gobench/instr"
	"github.jpl.nasa.gov/bdube/gobench/keithley"
	"github.jpl.nasa.gov/bdube/gobench/keysight"
	"github.jpl.nasa.gov/bdube/gobench/mettler"

	yml "gopkg.in/yaml.v2"
)

// ObjSetup mirrors the node entries of the benchsrv config file
type ObjSetup struct {
	Addr     string `yaml:"Addr"`
	Endpoint string `yaml:"Endpoint"`
	Serial   bool   `yaml:"Serial"`
	Type     string `yaml:"Type"`
}

// Config mirrors the benchsrv config file
type Config struct {
	Addr  string     `yaml:"Addr"`
	Nodes []ObjSetup `yaml:"Nodes"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

// probe bundles the health check hooks a given instrument type supports.
// selfTest and drain are nil when the hardware has no equivalent.
type probe struct {
	identify func() (string, error)
	selfTest func(time.Duration) error
	drain    func() int
}

func facadeProbe(f *instr.Facade) probe {
	return probe{
		identify: f.Identification,
		selfTest: f.SelfTest,
		drain:    func() int { return f.DrainErrors(instr.DefaultDrainLimit) },
	}
}

func newProbe(node ObjSetup) (probe, error) {
	typ := strings.ToLower(node.Type)
	switch typ {
	case "dmm", "34401a", "agilent-dmm":
		dmm := agilent.NewMultimeter(node.Addr, node.Serial, log)
		return facadeProbe(dmm.Facade), nil

	case "smu", "2400", "keithley", "sourcemeter":
		smu := keithley.NewSMU(node.Addr, log)
		return facadeProbe(smu.Facade), nil

	case "daq", "34970a", "switch", "keysight-daq":
		daq := keysight.NewDAQ(node.Addr)
		return probe{
			identify: func() (string, error) { return daq.Raw("*IDN?") },
			selfTest: func(d time.Duration) error { return scpiSelfTest(daq, d) },
		}, nil

	case "balance", "mettler", "sics":
		bal := mettler.NewBalance(node.Addr, node.Serial)
		return probe{identify: bal.Identification}, nil
	}
	return probe{}, fmt.Errorf("node type %q not understood", node.Type)
}

// timeoutRawer is anything that can round-trip a raw command with an
// adjustable timeout, which *TST? needs since self tests run for seconds
type timeoutRawer interface {
	Raw(string) (string, error)
	SetTimeout(time.Duration) time.Duration
}

func scpiSelfTest(dev timeoutRawer, timeout time.Duration) error {
	prev := dev.SetTimeout(timeout)
	defer dev.SetTimeout(prev)
	resp, err := dev.Raw("*TST?")
	if err != nil {
		return err
	}
	resp = strings.TrimSpace(resp)
	if resp != "0" && resp != "+0" {
		return fmt.Errorf("self test failed with code %s", resp)
	}
	return nil
}
