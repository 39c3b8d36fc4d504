// Package keysight provides an interface to Keysight switch/measure DAQ
// mainframes (34970A, 34972A and friends) with the same SCPI interface
package keysight

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ansel1/merry"

	"github.jpl.nasa.gov/bdube/gobench/comm"
	"github.jpl.nasa.gov/bdube/gobench/scpi"
)

// DAQ is a remote interface to a 34970A-class mainframe: three slots of
// plug-in cards addressed by three digit channel numbers (slot hundreds
// digit, sub-channel below).  Card identities are queried once and cached;
// call RefreshCards after swapping hardware.
type DAQ struct {
	scpi.SCPI

	mu    sync.Mutex
	cards map[int]string
}

// NewDAQ creates a new DAQ instance
func NewDAQ(addr string) *DAQ {
	maker := comm.BackingOffTCPConnMaker(addr, time.Second)
	pool := comm.NewPool(1, 10*time.Second, maker)
	return &DAQ{SCPI: scpi.SCPI{Pool: pool, Handshaking: true}}
}

// CardType reports the card model installed in a slot, e.g. "34901A",
// or "0" for an empty slot
func (d *DAQ) CardType(slot int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cards == nil {
		d.cards = make(map[int]string, maxSlot)
	}
	if model, ok := d.cards[slot]; ok {
		return model, nil
	}
	// reply is like HEWLETT-PACKARD,34901A,0,1.0
	resp, err := d.ReadString("SYSTem:CTYPe? " + strconv.Itoa(slot))
	if err != nil {
		return "", err
	}
	pieces := strings.Split(resp, ",")
	if len(pieces) < 2 {
		return "", merry.Errorf("malformed card identity %q from slot %d", resp, slot)
	}
	model := strings.TrimSpace(pieces[1])
	d.cards[slot] = model
	return model, nil
}

// RefreshCards drops the cached card identities so the next operation
// re-queries the mainframe
func (d *DAQ) RefreshCards() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cards = nil
}

// Resolve validates channels against the installed cards and returns the
// channel list fragment the mainframe's command syntax expects.  expect
// is the card model the operation requires, or empty for any.
func (d *DAQ) Resolve(expect string, channels ...int) (string, error) {
	return resolve(channels, expect, d.CardType)
}

// CloseChannels closes relay channels on multiplexer or actuator cards.
// Whole cards may be addressed by their slot base (e.g. 200)
func (d *DAQ) CloseChannels(channels ...int) error {
	list, err := d.Resolve("", channels...)
	if err != nil {
		return err
	}
	return d.Write(fmt.Sprintf(":ROUTe:CLOSe (@%s)", list))
}

// OpenChannels opens relay channels
func (d *DAQ) OpenChannels(channels ...int) error {
	list, err := d.Resolve("", channels...)
	if err != nil {
		return err
	}
	return d.Write(fmt.Sprintf(":ROUTe:OPEN (@%s)", list))
}

// ChannelClosed queries the state of one relay channel
func (d *DAQ) ChannelClosed(channel int) (bool, error) {
	list, err := d.Resolve("", channel)
	if err != nil {
		return false, err
	}
	return d.ReadBool(fmt.Sprintf(":ROUTe:CLOSe? (@%s)", list))
}

// ConfigureScanList sets the list of channels swept by INIT/READ?.
// Scanning requires multiplexer cards; the resolver rejects actuator and
// multifunction cards up front so a bad list never desynchronizes the
// mainframe's reply queue
func (d *DAQ) ConfigureScanList(channels ...int) error {
	list, err := d.Resolve("34901A", channels...)
	if err != nil {
		return err
	}
	return d.Write(fmt.Sprintf(":ROUTe:SCAN (@%s)", list))
}

// ScanRead sweeps the configured scan list once and returns the readings
func (d *DAQ) ScanRead() ([]float64, error) {
	resp, err := d.ReadString("READ?")
	if err != nil {
		return nil, err
	}
	pieces := strings.Split(resp, ",")
	out := make([]float64, len(pieces))
	for i, p := range pieces {
		out[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// MonitorChannel selects the channel shown on the front panel monitor
func (d *DAQ) MonitorChannel(channel int) error {
	list, err := d.Resolve("", channel)
	if err != nil {
		return err
	}
	return d.Write(fmt.Sprintf(":ROUTe:MONitor (@%s)", list))
}

// SetChannelLabel sets the label for a given channel.  This label has no meaning
// to the device and is purely for user identification
func (d *DAQ) SetChannelLabel(channel int, label string) error {
	list, err := d.Resolve("", channel)
	if err != nil {
		return err
	}
	return d.Write(fmt.Sprintf(":ROUTe:CHANnel:LABel \"%s\", (@%s)", label, list))
}

// GetChannelLabel retrieves the label of a given channel
func (d *DAQ) GetChannelLabel(channel int) (string, error) {
	list, err := d.Resolve("", channel)
	if err != nil {
		return "", err
	}
	resp, err := d.ReadString(fmt.Sprintf(":ROUTe:CHANnel:LABel? (@%s)", list))
	return strings.Trim(resp, `"`), err
}
