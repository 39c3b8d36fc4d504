/*Package mettler provides an interface to Mettler-Toledo balances speaking
the MT-SICS line protocol.

MT-SICS commands are short mnemonics ("S", "SI", "T", "Z", ...) and every
reply line carries the command echo, a condition code, and the payload:

	S S     123.40 g     stable weight
	S B                  busy, a further line follows
	S +                  overload

One logical operation may span several reply lines (busy continuations,
SIR streams); readReply is the state machine that absorbs them and maps
terminal condition codes onto the package's error classes.
*/
package mettler

import (
	"strings"

	"github.com/ansel1/merry"

	"github.jpl.nasa.gov/bdube/gobench/instr"
)

// Error classes for MT-SICS condition codes.  Classify with merry.Is.
var (
	// ErrOverload is generated by the + code, balance over capacity
	ErrOverload = merry.New("balance overloaded")

	// ErrUnderload is generated by the - code, balance under minimum load
	ErrUnderload = merry.New("balance underloaded")

	// ErrNotExecutable is generated by the I code, the command is understood
	// but cannot run in the current device mode
	ErrNotExecutable = merry.New("command not executable right now")

	// ErrInvalidArgument is generated by the L code, the command syntax is
	// valid but the value was rejected
	ErrInvalidArgument = merry.New("command argument rejected")

	// ErrProtocol is generated for condition codes this package does not
	// recognize; unknown codes are never silently swallowed
	ErrProtocol = merry.New("unrecognized reply from balance")
)

// Frame is one decomposed line of balance reply
type Frame struct {
	// Echo is the command mnemonic the balance is replying to
	Echo string

	// Code is the condition code token
	Code string

	// Payload is the remaining tokens, e.g. value and unit
	Payload []string
}

// LineConn is the connection a balance transaction needs: one write, then
// one or more reads.  comm.RemoteDevice satisfies it.
type LineConn interface {
	WriteLine(cmd string) error
	ReadLine() (string, error)
}

// parseFrame splits one reply line into a Frame
func parseFrame(line string) (Frame, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return Frame{}, merry.Appendf(ErrProtocol.Here(), "reply %q is too short", line)
	}
	return Frame{Echo: tokens[0], Code: tokens[1], Payload: tokens[2:]}, nil
}

// terminal classifies a condition code.  done means the transaction is
// complete; keep means the frame carries data worth returning.
func terminal(f Frame, cmd string) (done, keep bool, err error) {
	switch f.Code {
	case "A", "D", "S":
		// accepted, dynamic value, stable value
		return true, true, nil
	case "B":
		// busy, another line follows
		return false, true, nil
	case "+":
		return true, false, merry.Appendf(ErrOverload.Here(), "command %q", cmd)
	case "-":
		return true, false, merry.Appendf(ErrUnderload.Here(), "command %q", cmd)
	case "I":
		return true, false, merry.Appendf(ErrNotExecutable.Here(), "command %q", cmd)
	case "L":
		return true, false, merry.Appendf(ErrInvalidArgument.Here(), "command %q", cmd)
	case "R":
		// request superseded by a later command; terminal but not an
		// error, the caller gets whatever accumulated
		return true, false, nil
	}
	return true, false, merry.Appendf(ErrProtocol.Here(), "command %q: condition code %q in reply", cmd, f.Code)
}

// readReply sends cmd and consumes reply lines until a terminal condition
// code, returning the accumulated frames.  This is the only place a single
// logical call spans multiple transport reads.
func readReply(c LineConn, cmd string) ([]Frame, error) {
	if err := c.WriteLine(cmd); err != nil {
		return nil, merry.Appendf(instr.ErrCommunication.Here(), "command %q: %v", cmd, err)
	}
	var frames []Frame
	for {
		line, err := c.ReadLine()
		if err != nil {
			return frames, merry.Appendf(instr.ErrCommunication.Here(), "command %q: %v", cmd, err)
		}
		f, err := parseFrame(line)
		if err != nil {
			return frames, err
		}
		done, keep, err := terminal(f, cmd)
		if err != nil {
			return frames, err
		}
		if keep {
			frames = append(frames, f)
		}
		if done {
			return frames, nil
		}
	}
}

// readStream sends cmd (a repeating command such as SIR) and consumes reply
// lines until n data-bearing frames have arrived.  Error condition codes
// abort the stream as in readReply.
func readStream(c LineConn, cmd string, n int) ([]Frame, error) {
	if err := c.WriteLine(cmd); err != nil {
		return nil, merry.Appendf(instr.ErrCommunication.Here(), "command %q: %v", cmd, err)
	}
	frames := make([]Frame, 0, n)
	for len(frames) < n {
		line, err := c.ReadLine()
		if err != nil {
			return frames, merry.Appendf(instr.ErrCommunication.Here(), "command %q: %v", cmd, err)
		}
		f, err := parseFrame(line)
		if err != nil {
			return frames, err
		}
		done, keep, err := terminal(f, cmd)
		if err != nil {
			return frames, err
		}
		if keep && f.Code != "B" {
			frames = append(frames, f)
		}
		if done && f.Code == "R" {
			// stream cancelled out from under us
			return frames, nil
		}
	}
	return frames, nil
}
