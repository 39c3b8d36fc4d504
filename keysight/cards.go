package keysight

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ansel1/merry"

	"github.jpl.nasa.gov/bdube/gobench/util"
)

// Error classes for channel resolution.  Classify with merry.Is.
var (
	// ErrNoCard is generated when a channel addresses an empty slot
	ErrNoCard = merry.New("no card installed in slot")

	// ErrCardMismatch is generated when the installed card is not the
	// model the operation requires
	ErrCardMismatch = merry.New("installed card does not match expected model")

	// ErrInvalidChannel is generated when a channel number is not legal
	// for the installed card
	ErrInvalidChannel = merry.New("channel not legal for card")
)

// Card describes one plug-in module model: which sub-channel numbers exist
// on it.  Sub-channels are the last two digits of a full channel number
// (channel 203 = slot 2, sub-channel 3).
type Card struct {
	// Model is the identifier the mainframe reports in SYST:CTYP?
	Model string

	// Subs is the ascending list of legal sub-channel numbers
	Subs []int
}

// legal indicates sub is a sub-channel that exists on this card
func (c Card) legal(sub int) bool {
	for _, s := range c.Subs {
		if s == sub {
			return true
		}
	}
	return false
}

// cardRegistry lists the plug-in modules this driver knows.  34908A's
// single-ended bank and the matrix cards are not listed; add them here if
// one lands in a mainframe we drive.
var cardRegistry = map[string]Card{
	"34901A": {Model: "34901A", Subs: util.Arange(1, 21)},   // 20ch armature mux
	"34902A": {Model: "34902A", Subs: util.Arange(1, 17)},   // 16ch reed mux
	"34903A": {Model: "34903A", Subs: util.Arange(1, 21)},   // 20ch GP actuator
	"34907A": {Model: "34907A", Subs: []int{1, 2, 3, 4, 5}}, // multifunction DIO/totalizer/DAC
}

const (
	minSlot = 1
	maxSlot = 3
)

// slotOf splits a full channel number into slot and sub-channel
func slotOf(channel int) (slot, sub int) {
	return channel / 100, channel % 100
}

// resolve expands and validates a list of full channel numbers against the
// installed cards and renders them in the device's channel list syntax:
// comma-joined singles with consecutive runs collapsed to lo:hi ranges.
// A channel equal to a slot's base address (e.g. 200) addresses the whole
// card.  cardAt reports the installed card model for a slot; expect is the
// card model the operation requires, or empty to accept any.
func resolve(channels []int, expect string, cardAt func(int) (string, error)) (string, error) {
	var full []int
	for _, ch := range channels {
		slot, sub := slotOf(ch)
		if slot < minSlot || slot > maxSlot {
			return "", merry.Appendf(ErrInvalidChannel.Here(), "channel %d: slot %d outside 1~%d", ch, slot, maxSlot)
		}
		model, err := cardAt(slot)
		if err != nil {
			return "", err
		}
		if model == "" || model == "0" || strings.EqualFold(model, "NONE") {
			return "", merry.Appendf(ErrNoCard.Here(), "channel %d addresses empty slot %d", ch, slot)
		}
		card, known := cardRegistry[model]
		if !known {
			return "", merry.Appendf(ErrCardMismatch.Here(), "slot %d holds unknown card %q", slot, model)
		}
		if expect != "" && card.Model != expect {
			return "", merry.Appendf(ErrCardMismatch.Here(), "slot %d holds %s, operation requires %s", slot, card.Model, expect)
		}
		if sub == 0 {
			// whole-card block address
			for _, s := range card.Subs {
				full = append(full, slot*100+s)
			}
			continue
		}
		if !card.legal(sub) {
			return "", merry.Appendf(ErrInvalidChannel.Here(), "channel %d: card %s has no sub-channel %d", ch, card.Model, sub)
		}
		full = append(full, ch)
	}
	full = util.UniqueInt(full)
	return compact(full), nil
}

// compact renders channels in the device list syntax, collapsing runs of
// three or more consecutive numbers into lo:hi ranges.  The exact format
// matters: the mainframe parses (@201:220) and (@101,103) but not
// arbitrary whitespace.
func compact(channels []int) string {
	sort.Ints(channels)
	var pieces []string
	for i := 0; i < len(channels); {
		j := i
		for j+1 < len(channels) && channels[j+1] == channels[j]+1 {
			j++
		}
		if j-i >= 2 {
			pieces = append(pieces, strconv.Itoa(channels[i])+":"+strconv.Itoa(channels[j]))
		} else {
			for k := i; k <= j; k++ {
				pieces = append(pieces, strconv.Itoa(channels[k]))
			}
		}
		i = j + 1
	}
	return strings.Join(pieces, ",")
}
