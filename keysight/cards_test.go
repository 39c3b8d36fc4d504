package keysight

import (
	"testing"

	"github.com/ansel1/merry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/gobench/util"
)

// bench is a fixed mainframe load-out: mux in 1 and 2, multifunction in 3
func bench(slot int) (string, error) {
	switch slot {
	case 1, 2:
		return "34901A", nil
	case 3:
		return "34907A", nil
	}
	return "0", nil
}

func emptyMainframe(int) (string, error) { return "0", nil }

func TestResolveSingleChannel(t *testing.T) {
	list, err := resolve([]int{203}, "34901A", bench)
	require.NoError(t, err)
	assert.Equal(t, "203", list)
}

func TestResolveFullSlotListCompacts(t *testing.T) {
	list, err := resolve(util.Arange(201, 221), "", bench)
	require.NoError(t, err)
	assert.Equal(t, "201:220", list)
}

func TestResolveBlockAddressExpandsWholeCard(t *testing.T) {
	list, err := resolve([]int{200}, "", bench)
	require.NoError(t, err)
	assert.Equal(t, "201:220", list)

	list, err = resolve([]int{300}, "", bench)
	require.NoError(t, err)
	assert.Equal(t, "301:305", list)
}

func TestResolveMixedSinglesAndRuns(t *testing.T) {
	list, err := resolve([]int{101, 103, 105, 106, 107, 110}, "", bench)
	require.NoError(t, err)
	assert.Equal(t, "101,103,105:107,110", list)
}

func TestResolveEmptySlot(t *testing.T) {
	_, err := resolve([]int{101}, "", emptyMainframe)
	assert.True(t, merry.Is(err, ErrNoCard))
}

func TestResolveCardMismatch(t *testing.T) {
	_, err := resolve([]int{301}, "34901A", bench)
	assert.True(t, merry.Is(err, ErrCardMismatch))
}

func TestResolveIllegalSubChannel(t *testing.T) {
	// the multifunction card only has sub-channels 1~5
	_, err := resolve([]int{306}, "", bench)
	assert.True(t, merry.Is(err, ErrInvalidChannel))

	// the 20ch mux has no sub-channel 21
	_, err = resolve([]int{121}, "", bench)
	assert.True(t, merry.Is(err, ErrInvalidChannel))
}

func TestResolveSlotOutOfRange(t *testing.T) {
	_, err := resolve([]int{401}, "", bench)
	assert.True(t, merry.Is(err, ErrInvalidChannel))

	_, err = resolve([]int{7}, "", bench)
	assert.True(t, merry.Is(err, ErrInvalidChannel))
}

func TestResolveDeduplicates(t *testing.T) {
	list, err := resolve([]int{203, 203, 204}, "", bench)
	require.NoError(t, err)
	assert.Equal(t, "203,204", list)
}

func TestCompactPrefersSinglesForShortRuns(t *testing.T) {
	assert.Equal(t, "101,102", compact([]int{101, 102}))
	assert.Equal(t, "101:103", compact([]int{101, 102, 103}))
	assert.Equal(t, "", compact(nil))
}
