package comm

import (
	"bufio"
	"io"
	"time"
)

// Terminator wraps a ReadWriter, appending the Tx terminator to each write
// and consuming through the Rx terminator on each read, stripping it from
// the data handed back.
type Terminator struct {
	rw io.ReadWriter
	r  *bufio.Reader
	tx byte
	rx byte
}

// NewTerminator wraps rw with terminator handling
func NewTerminator(rw io.ReadWriter, rx, tx byte) *Terminator {
	return &Terminator{rw: rw, r: bufio.NewReader(rw), tx: tx, rx: rx}
}

// Write appends the Tx terminator and forwards to the underlying writer.
// The returned count excludes the terminator.
func (t *Terminator) Write(b []byte) (int, error) {
	n, err := t.rw.Write(append(b, t.tx))
	if n > len(b) {
		n = len(b)
	}
	return n, err
}

// Read consumes through the Rx terminator and copies the data, without the
// terminator, into b.
func (t *Terminator) Read(b []byte) (int, error) {
	data, err := t.r.ReadBytes(t.rx)
	if err != nil {
		return 0, err
	}
	data = data[:len(data)-1]
	n := copy(b, data)
	return n, nil
}

// Timeout wraps a ReadWriter, extending the deadline before each operation
// when the underlying connection supports deadlines (net.Conn does, serial
// ports carry their own timeout).
type Timeout struct {
	rw io.ReadWriter
	d  time.Duration
}

// NewTimeout wraps rw with deadline extension
func NewTimeout(rw io.ReadWriter, d time.Duration) (*Timeout, error) {
	return &Timeout{rw: rw, d: d}, nil
}

func (t *Timeout) extend() {
	type deadliner interface {
		SetDeadline(time.Time) error
	}
	if c, ok := t.rw.(deadliner); ok {
		c.SetDeadline(time.Now().Add(t.d))
	}
}

func (t *Timeout) Write(b []byte) (int, error) {
	t.extend()
	return t.rw.Write(b)
}

func (t *Timeout) Read(b []byte) (int, error) {
	t.extend()
	return t.rw.Read(b)
}
