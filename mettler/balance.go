package mettler

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ansel1/merry"

	"github.jpl.nasa.gov/bdube/gobench/comm"
	"github.jpl.nasa.gov/bdube/gobench/instr"
)

// Weight is one weighing result
type Weight struct {
	// Value is the mass in Unit
	Value float64 `json:"value"`

	// Unit is the balance's current display unit, e.g. "g"
	Unit string `json:"unit"`

	// Stable indicates the reading was stable (condition code S) rather
	// than dynamic (D)
	Stable bool `json:"stable"`
}

// Balance is an interface to Mettler-Toledo balances (XP/XS/AX and others
// speaking MT-SICS level 0).  A Balance owns its connection exclusively;
// transactions are serialized internally because a single operation may
// span several reply lines.
type Balance struct {
	conn LineConn
	log  instr.Logger
	mu   sync.Mutex
}

// NewBalance creates a new Balance instance.  addr is a network address
// (host:port) or serial device file; the balance factory default serial
// framing works with the default config.
func NewBalance(addr string, serial bool) *Balance {
	term := comm.Terminators{Tx: '\n', Rx: '\n'}
	rd := comm.NewRemoteDevice(addr, serial, &term, nil)
	rd.Timeout = 10 * time.Second
	return &Balance{conn: &rd, log: instr.NopLogger}
}

// NewBalanceConn wraps an existing connection, for balances behind
// nonstandard transports and for tests
func NewBalanceConn(c LineConn, log instr.Logger) *Balance {
	if log == nil {
		log = instr.NopLogger
	}
	return &Balance{conn: c, log: log}
}

// weightFromFrame decodes "123.4 g" style payloads
func weightFromFrame(f Frame) (Weight, error) {
	if len(f.Payload) < 1 {
		return Weight{}, merry.Appendf(instr.ErrReplyFormat.Here(), "no payload in frame %v", f)
	}
	v, err := strconv.ParseFloat(f.Payload[0], 64)
	if err != nil {
		return Weight{}, merry.Appendf(instr.ErrReplyFormat.Here(), "%q is not a number", f.Payload[0])
	}
	w := Weight{Value: v, Stable: f.Code == "S"}
	if len(f.Payload) > 1 {
		w.Unit = f.Payload[1]
	}
	return w, nil
}

// lastWeight pulls the weight out of the terminal frame of a transaction
func lastWeight(frames []Frame, err error) (Weight, error) {
	if err != nil {
		return Weight{}, err
	}
	if len(frames) == 0 {
		// superseded (code R) with nothing accumulated
		return Weight{}, nil
	}
	return weightFromFrame(frames[len(frames)-1])
}

// Weigh performs a weighing and waits for a stable value.  The balance
// replies busy until the pan settles
func (b *Balance) Weigh() (Weight, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lastWeight(readReply(b.conn, "S"))
}

// WeighImmediate returns the current value without waiting for stability;
// the Stable field of the result distinguishes the two cases
func (b *Balance) WeighImmediate() (Weight, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lastWeight(readReply(b.conn, "SI"))
}

// WeighContinuous starts a repeating immediate weighing (SIR) and collects
// n readings, then resets the balance interface to stop the stream
func (b *Balance) WeighContinuous(n int) ([]Weight, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	frames, err := readStream(b.conn, "SIR", n)
	if err != nil {
		return nil, err
	}
	out := make([]Weight, 0, len(frames))
	for _, f := range frames {
		w, err := weightFromFrame(f)
		if err != nil {
			return out, err
		}
		out = append(out, w)
	}
	// stop the stream; the reset reply is drained so it cannot be
	// mistaken for the next transaction's reply
	if _, err := readReply(b.conn, "@"); err != nil {
		b.log.Printf("balance: stopping SIR stream: %v", err)
	}
	return out, nil
}

// Zero zeroes the balance (Z); the zero point becomes the current load
func (b *Balance) Zero() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := readReply(b.conn, "Z")
	return err
}

// Tare tares the balance with the current load (T), waiting for stability,
// and returns the stored tare weight
func (b *Balance) Tare() (Weight, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lastWeight(readReply(b.conn, "T"))
}

// TareValue returns the tare weight currently stored in the balance (TA)
func (b *Balance) TareValue() (Weight, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lastWeight(readReply(b.conn, "TA"))
}

// SetTareValue stores a preset tare weight in the balance (TA v unit)
func (b *Balance) SetTareValue(v float64, unit string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cmd := "TA " + strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
	_, err := readReply(b.conn, cmd)
	return err
}

// ClearTare clears the tare memory (TAC)
func (b *Balance) ClearTare() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := readReply(b.conn, "TAC")
	return err
}

// Identification returns the balance model identification (I2)
func (b *Balance) Identification() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	frames, err := readReply(b.conn, "I2")
	if err != nil {
		return "", err
	}
	if len(frames) == 0 {
		return "", nil
	}
	f := frames[len(frames)-1]
	return strings.Trim(strings.Join(f.Payload, " "), `"`), nil
}

// DisplayText writes text on the balance display (D)
func (b *Balance) DisplayText(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := readReply(b.conn, `D "`+text+`"`)
	return err
}

// Reset cancels any running command and restores the balance to the state
// after power up (@)
func (b *Balance) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := readReply(b.conn, "@")
	return err
}
