package instr

import (
	"fmt"
	"testing"
	"time"

	"github.com/ansel1/merry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records writes and pops scripted replies so the engine can
// be exercised without hardware
type fakeTransport struct {
	written []string
	asked   []string
	replies []string
	timeout time.Duration
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

func (f *fakeTransport) SetTimeout(d time.Duration) time.Duration {
	prev := f.timeout
	f.timeout = d
	return prev
}

func testTable() map[string]CommandSpec {
	return map[string]CommandSpec{
		"voltage_range": {
			Query:  "SOUR:VOLT:RANG?",
			Write:  "SOUR:VOLT:RANG %s",
			Domain: TruncatedSet{Values: []float64{0.1, 1, 10, 100, 1000}},
			Cast:   CastFloat,
		},
		"output": {
			Query: "OUTP?",
			Write: "OUTP %s",
			Map:   OnOff(),
		},
		"line_frequency": {
			Query: "SYST:LFR?",
			Cast:  CastFloat,
		},
		"display_text": {
			Write:  "DISP:TEXT %s",
			Domain: nil,
		},
		"reset": {
			Write: "*RST",
		},
	}
}

func TestSetFormatsTruncatedValueIntoTemplate(t *testing.T) {
	tx := &fakeTransport{}
	f := NewFacade("smu", tx, testTable(), nil)
	err := f.Set("voltage_range", 1.5)
	require.NoError(t, err)
	require.Len(t, tx.written, 1)
	assert.Equal(t, "SOUR:VOLT:RANG 10", tx.written[0])
}

func TestSetRejectsBeforeTransport(t *testing.T) {
	tx := &fakeTransport{}
	f := NewFacade("smu", tx, testTable(), nil)
	err := f.Set("voltage_range", 5000.0)
	assert.True(t, merry.Is(err, ErrInvalidValue))
	assert.Empty(t, tx.written, "an invalid value must never reach the device")
}

func TestDirectionMismatch(t *testing.T) {
	tx := &fakeTransport{}
	f := NewFacade("smu", tx, testTable(), nil)

	_, err := f.Get("display_text")
	assert.True(t, merry.Is(err, ErrWriteOnly))

	err = f.Set("line_frequency", 60.0)
	assert.True(t, merry.Is(err, ErrReadOnly))

	assert.Empty(t, tx.written)
	assert.Empty(t, tx.asked)
}

func TestUnknownProperty(t *testing.T) {
	f := NewFacade("smu", &fakeTransport{}, testTable(), nil)
	_, err := f.Get("flux_capacitance")
	assert.True(t, merry.Is(err, ErrUnknownProperty))
}

func TestGetDecodesMappedBoolWithTrailingWhitespace(t *testing.T) {
	for _, raw := range []string{"1", "1\n", "1\r\n"} {
		tx := &fakeTransport{replies: []string{raw}}
		f := NewFacade("smu", tx, testTable(), nil)
		on, err := f.GetBool("output")
		require.NoError(t, err, "raw reply %q", raw)
		assert.True(t, on)
	}
}

func TestGetCastFailureIsReplyFormat(t *testing.T) {
	tx := &fakeTransport{replies: []string{"garbage"}}
	f := NewFacade("smu", tx, testTable(), nil)
	_, err := f.GetFloat("line_frequency")
	assert.True(t, merry.Is(err, ErrReplyFormat))
}

func TestTriggerSendsBareCommand(t *testing.T) {
	tx := &fakeTransport{}
	f := NewFacade("smu", tx, testTable(), nil)
	require.NoError(t, f.Trigger("reset"))
	assert.Equal(t, []string{"*RST"}, tx.written)
}

func TestTriggerRejectsValuedCommand(t *testing.T) {
	tx := &fakeTransport{}
	f := NewFacade("smu", tx, testTable(), nil)
	err := f.Trigger("output")
	assert.True(t, merry.Is(err, ErrInvalidValue), "a templated command needs a value, got %v", err)
	assert.Empty(t, tx.written, "the raw template must never reach the device")
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Printf(format string, v ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func TestDrainErrorsLogsUntilNoError(t *testing.T) {
	tx := &fakeTransport{replies: []string{
		`-113,"Undefined header"`,
		`-410,"Query INTERRUPTED"`,
		`+0,"No error"`,
	}}
	log := &recordingLogger{}
	f := NewFacade("dmm", tx, testTable(), log)
	n := f.DrainErrors(0)
	assert.Equal(t, 2, n)
	assert.Len(t, tx.asked, 3)
	assert.Len(t, log.lines, 2)
}

func TestDrainErrorsGivesUpAtWallClockLimit(t *testing.T) {
	// endless error replies: the loop must stop at the limit, not spin forever
	tx := &fakeTransport{}
	for i := 0; i < 100000; i++ {
		tx.replies = append(tx.replies, `-350,"Queue overflow"`)
	}
	log := &recordingLogger{}
	f := NewFacade("dmm", tx, testTable(), log)
	start := time.Now()
	f.DrainErrors(10 * time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSelfTestAdjustsTimeoutAndRestores(t *testing.T) {
	tx := &fakeTransport{replies: []string{"0"}, timeout: 3 * time.Second}
	f := NewFacade("dmm", tx, testTable(), nil)
	require.NoError(t, f.SelfTest(30*time.Second))
	assert.Equal(t, []string{"*TST?"}, tx.asked)
	assert.Equal(t, 3*time.Second, tx.timeout, "timeout should be restored")
}

func TestSelfTestFailure(t *testing.T) {
	tx := &fakeTransport{replies: []string{"1"}}
	f := NewFacade("dmm", tx, testTable(), nil)
	assert.Error(t, f.SelfTest(0))
}

func TestSetReadDecodesCompoundReply(t *testing.T) {
	table := map[string]CommandSpec{
		"measure": {
			Write: "MEAS:VOLT:DC? %s",
			Query: "READ?",
			Cast:  CastFloat,
			Domain: Union{
				Range{Lo: 0.1, Hi: 1000},
				DiscreteSet{Values: []interface{}{"MIN", "MAX", "DEF"}},
			},
		},
	}
	tx := &fakeTransport{replies: []string{"+4.27150000E-03"}}
	f := NewFacade("dmm", tx, table, nil)
	v, err := f.SetRead("measure", "DEF")
	require.NoError(t, err)
	assert.InDelta(t, 4.2715e-3, v.(float64), 1e-12)
	assert.Equal(t, []string{"MEAS:VOLT:DC? DEF"}, tx.asked)
}
