package mettler

import (
	"fmt"
	"testing"

	"github.com/ansel1/merry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/gobench/instr"
)

// scriptedConn plays back canned reply lines and counts reads
type scriptedConn struct {
	written  []string
	lines    []string
	reads    int
	writeErr error
}

func (s *scriptedConn) WriteLine(cmd string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, cmd)
	return nil
}

func (s *scriptedConn) ReadLine() (string, error) {
	if len(s.lines) == 0 {
		return "", fmt.Errorf("no more scripted lines after %d reads", s.reads)
	}
	s.reads++
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestStableWeighingSingleFrame(t *testing.T) {
	conn := &scriptedConn{lines: []string{"S S     123.4 g"}}
	b := NewBalanceConn(conn, nil)
	w, err := b.Weigh()
	require.NoError(t, err)
	assert.Equal(t, 123.4, w.Value)
	assert.Equal(t, "g", w.Unit)
	assert.True(t, w.Stable)
	assert.Equal(t, 1, conn.reads)
}

func TestBusyContinuationThenDynamic(t *testing.T) {
	conn := &scriptedConn{lines: []string{"S B", "S D    45.6 g", "UNREAD"}}
	b := NewBalanceConn(conn, nil)
	w, err := b.WeighImmediate()
	require.NoError(t, err)
	assert.Equal(t, 45.6, w.Value)
	assert.False(t, w.Stable)
	assert.Equal(t, 2, conn.reads, "exactly two reads, the busy line and the data line")
}

func TestConditionCodeErrors(t *testing.T) {
	cases := []struct {
		line string
		want error
	}{
		{line: "S +", want: ErrOverload},
		{line: "S -", want: ErrUnderload},
		{line: "S I", want: ErrNotExecutable},
		{line: "S L", want: ErrInvalidArgument},
		{line: "S ?", want: ErrProtocol},
	}
	for _, tc := range cases {
		conn := &scriptedConn{lines: []string{tc.line, "UNREAD"}}
		b := NewBalanceConn(conn, nil)
		_, err := b.Weigh()
		assert.True(t, merry.Is(err, tc.want), "line %q should map to %v, got %v", tc.line, tc.want, err)
		assert.Equal(t, 1, conn.reads, "error codes must not trigger further reads")
	}
}

func TestTransportErrorsClassifyAsCommunication(t *testing.T) {
	// read side: the scripted conn has no lines left to serve
	conn := &scriptedConn{}
	b := NewBalanceConn(conn, nil)
	_, err := b.Weigh()
	require.Error(t, err)
	assert.True(t, merry.Is(err, instr.ErrCommunication), "read failure should classify as ErrCommunication, got %v", err)

	// write side
	conn = &scriptedConn{writeErr: fmt.Errorf("serial port gone")}
	b = NewBalanceConn(conn, nil)
	_, err = b.Weigh()
	require.Error(t, err)
	assert.True(t, merry.Is(err, instr.ErrCommunication), "write failure should classify as ErrCommunication, got %v", err)
}

func TestShortReplyIsProtocolError(t *testing.T) {
	conn := &scriptedConn{lines: []string{"ES"}}
	b := NewBalanceConn(conn, nil)
	_, err := b.Weigh()
	assert.True(t, merry.Is(err, ErrProtocol))
}

func TestSupersededReturnsEmptyResultNotError(t *testing.T) {
	conn := &scriptedConn{lines: []string{"S R"}}
	b := NewBalanceConn(conn, nil)
	w, err := b.Weigh()
	require.NoError(t, err)
	assert.Zero(t, w.Value)
	assert.Empty(t, w.Unit)
}

func TestZeroAccepted(t *testing.T) {
	conn := &scriptedConn{lines: []string{"Z A"}}
	b := NewBalanceConn(conn, nil)
	require.NoError(t, b.Zero())
	assert.Equal(t, []string{"Z"}, conn.written)
}

func TestTareReturnsStoredWeight(t *testing.T) {
	conn := &scriptedConn{lines: []string{"T B", "T S     10.00 g"}}
	b := NewBalanceConn(conn, nil)
	w, err := b.Tare()
	require.NoError(t, err)
	assert.Equal(t, 10.0, w.Value)
	assert.Equal(t, "g", w.Unit)
}

func TestSetTareValueRejected(t *testing.T) {
	conn := &scriptedConn{lines: []string{"TA L"}}
	b := NewBalanceConn(conn, nil)
	err := b.SetTareValue(-1, "g")
	assert.True(t, merry.Is(err, ErrInvalidArgument))
	assert.Equal(t, []string{"TA -1 g"}, conn.written)
}

func TestWeighContinuousCollectsNFrames(t *testing.T) {
	conn := &scriptedConn{lines: []string{
		"S D    1.0 g",
		"S D    1.5 g",
		"S S    2.0 g",
		"I4 A \"0123456789\"", // reply to the stream-stopping reset
	}}
	b := NewBalanceConn(conn, nil)
	ws, err := b.WeighContinuous(3)
	require.NoError(t, err)
	require.Len(t, ws, 3)
	assert.Equal(t, 1.0, ws[0].Value)
	assert.Equal(t, 2.0, ws[2].Value)
	assert.True(t, ws[2].Stable)
	assert.Equal(t, []string{"SIR", "@"}, conn.written)
}

func TestWeighContinuousAbortsOnOverload(t *testing.T) {
	conn := &scriptedConn{lines: []string{"S D    1.0 g", "S +"}}
	b := NewBalanceConn(conn, nil)
	_, err := b.WeighContinuous(3)
	assert.True(t, merry.Is(err, ErrOverload))
}

func TestIdentification(t *testing.T) {
	conn := &scriptedConn{lines: []string{`I2 A "XS204 Excellence"`}}
	b := NewBalanceConn(conn, nil)
	id, err := b.Identification()
	require.NoError(t, err)
	assert.Equal(t, "XS204 Excellence", id)
}
