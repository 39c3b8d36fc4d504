/*Package comm provides types for communication with benchtop instruments.

Most instruments speak a half duplex, line oriented ASCII protocol over
RS-232 or TCP (e.g. behind a terminal server or GPIB-LAN gateway).
RemoteDevice wraps one such connection and provides line-level I/O with
terminator handling, per-call deadlines, and optional command pacing for
devices that limit how many commands per second they accept.

A minimal example for a sensor that responds to "RD?" with a number:

	rd := comm.NewRemoteDevice("192.168.100.40:2001", false, nil, nil)

	func ReadTemp() (float64, error) {
		resp, err := rd.Ask("RD?")
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(resp, 64)
	}

Exactly one logical operation may be in flight per device; RemoteDevice
serializes callers internally so a reply is always matched to its query.
*/
package comm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
	"golang.org/x/time/rate"
)

var (
	// ErrNotConnected is generated when Conn is nil and Send or Recv is called.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// Terminators holds the byte which ends transmissions (Tx) and receipts (Rx)
type Terminators struct {
	Tx byte
	Rx byte
}

// CarriageReturn are the default terminators, a bare \r in each direction
var CarriageReturn = Terminators{Tx: '\r', Rx: '\r'}

/*RemoteDevice is a single host-side handle to one physical instrument.

The zero value is not usable; create instances with NewRemoteDevice.  The
device dials TCP when IsSerial is false, otherwise it opens the serial
port described by the config given to NewRemoteDevice.

Connections are opened lazily on the first call that needs one and kept
open between calls.  CloseEventually relinquishes the connection only
when KeepAlive is false, so chatty instruments are not connection
thrashed while one-shot scripts release the port promptly.
*/
type RemoteDevice struct {
	// Addr is the network address (host:port) or serial port device file
	Addr string

	// IsSerial selects a serial port instead of a TCP dial
	IsSerial bool

	// Conn is the underlying connection, managed by Open/Close
	Conn io.ReadWriteCloser

	// Timeout bounds each send or receive on the connection
	Timeout time.Duration

	// KeepAlive keeps the connection open across operations
	KeepAlive bool

	terms   Terminators
	serCfg  *serial.Config
	limiter *rate.Limiter
	reader  *bufio.Reader
	mu      sync.Mutex
}

// NewRemoteDevice creates a new RemoteDevice instance.  terms may be nil,
// in which case CarriageReturn is used.  serCfg may be nil for TCP devices.
func NewRemoteDevice(addr string, isSerial bool, terms *Terminators, serCfg *serial.Config) RemoteDevice {
	t := CarriageReturn
	if terms != nil {
		t = *terms
	}
	return RemoteDevice{
		Addr:      addr,
		IsSerial:  isSerial,
		Timeout:   3 * time.Second,
		KeepAlive: true,
		terms:     t,
		serCfg:    serCfg}
}

// SetTimeout replaces the per-operation timeout and returns the previous
// value, so a long operation (e.g. *TST?) can widen it and restore it after
func (rd *RemoteDevice) SetTimeout(d time.Duration) time.Duration {
	prev := rd.Timeout
	rd.Timeout = d
	return prev
}

// SetCommandRate limits the device to at most perSecond commands each second.
// Some instruments (e.g. Lakeshore temperature controllers, < 20 commands
// per second) drop or garble input sent faster than they can parse it.
func (rd *RemoteDevice) SetCommandRate(perSecond float64) {
	rd.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Open the connection, setting the Conn variable
func (rd *RemoteDevice) Open() error {
	if rd.Conn != nil {
		return nil
	}
	// we use an exponential backoff, some terminal servers
	// do not like being connection thrashed
	wasTimeout := false
	op := func() error {
		err := rd.open()
		if err != nil {
			errS := strings.ToLower(err.Error())
			if strings.Contains(errS, "refused") {
				return err
			}
			wasTimeout = true
			return nil
		}
		return nil
	}

	// backoff will cease on a timeout so we don't wait
	// forever, so we need to check for err != nil && !wasTimeout
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err == nil && !wasTimeout {
		return nil
	}
	if wasTimeout {
		return fmt.Errorf("connection timeout to %s", rd.Addr)
	}
	return err
}

func (rd *RemoteDevice) open() error {
	var (
		err  error
		conn io.ReadWriteCloser
	)
	if rd.IsSerial {
		cfg := rd.serCfg
		if cfg == nil {
			cfg = &serial.Config{Name: rd.Addr, Baud: 9600, ReadTimeout: rd.Timeout}
		}
		conn, err = serial.OpenPort(cfg)
	} else {
		conn, err = TCPSetup(rd.Addr, rd.Timeout)
	}
	if err != nil {
		return err
	}
	rd.Conn = conn
	rd.reader = bufio.NewReader(conn)
	return nil
}

// Close the connection, nil-ing the Conn variable
func (rd *RemoteDevice) Close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	if err == nil {
		rd.Conn = nil
		rd.reader = nil
	}
	return err
}

// CloseEventually closes the connection unless the device is in
// keep-alive mode, in which case it is left open for the next operation.
func (rd *RemoteDevice) CloseEventually() error {
	if rd.KeepAlive {
		return nil
	}
	return rd.Close()
}

// Send writes data to the remote after appending the Tx terminator
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	if err := rd.pace(); err != nil {
		return err
	}
	rd.extendDeadline()
	b = append(b, rd.terms.Tx)
	_, err := rd.Conn.Write(b)
	return err
}

// Recv receives data from the remote and strips the Rx terminator
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	rd.extendDeadline()
	term := rd.terms.Rx
	buf, err := rd.reader.ReadBytes(term)
	if err != nil {
		return []byte{}, err
	}
	if bytes.HasSuffix(buf, []byte{term}) {
		return buf[:len(buf)-1], nil
	}
	return buf, ErrTerminatorNotFound
}

// SendRecv sends a buffer after appending the Tx terminator,
// then returns the response with the Rx terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	err := rd.Send(b)
	if err != nil {
		return []byte{}, err
	}
	return rd.Recv()
}

// WriteLine opens the connection if needed and sends one line of text
func (rd *RemoteDevice) WriteLine(s string) error {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	err := rd.Open()
	if err != nil {
		return err
	}
	defer rd.CloseEventually()
	return rd.Send([]byte(s))
}

// ReadLine reads the next line of text from the device.  It is used for
// protocols where one command elicits more than one reply line; the first
// line should be consumed via Ask.
func (rd *RemoteDevice) ReadLine() (string, error) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.Conn == nil {
		return "", ErrNotConnected
	}
	resp, err := rd.Recv()
	return string(resp), err
}

// Ask sends one line of text and returns the one-line response
func (rd *RemoteDevice) Ask(s string) (string, error) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	err := rd.Open()
	if err != nil {
		return "", err
	}
	defer rd.CloseEventually()
	resp, err := rd.SendRecv([]byte(s))
	return string(resp), err
}

// pace blocks until the rate limiter permits another command, bounded by
// the device timeout
func (rd *RemoteDevice) pace() error {
	if rd.limiter == nil {
		return nil
	}
	ctx := context.Background()
	if rd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rd.Timeout)
		defer cancel()
	}
	return rd.limiter.Wait(ctx)
}

// extendDeadline pushes the read/write deadline forward on TCP connections.
// Serial ports carry their timeout in the port config.
func (rd *RemoteDevice) extendDeadline() {
	if conn, ok := rd.Conn.(net.Conn); ok && rd.Timeout > 0 {
		deadline := time.Now().Add(rd.Timeout)
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}
