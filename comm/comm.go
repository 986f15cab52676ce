/*Package comm provides the byte channel used to talk to serial hardware.

Most usages of this package will boil down to:
	1.  build an Opener with SerialOpener (or a fake one in tests)
	2.  open a port by name, getting a Transport
	3.  Write a request, then collect the reply with ReadLine or ReadExact

Serial ports are opened with a read timeout.  When it elapses the port returns
no data, and both readers hand back whatever was received so far instead of an
error.  A silent device is therefore an empty reply, not a failure.

	conn, err := comm.SerialOpener(9600, 5*time.Second)("/dev/ttyACM0")
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write([]byte("VER"))
	if err != nil {
		return err
	}
	line, err := comm.ReadLine(conn)
*/
package comm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

const (
	// LineTerminator ends a line of text sent by the remote
	LineTerminator = byte('\n')

	// maxLineLength bounds ReadLine so a chattering device cannot stall a caller forever
	maxLineLength = 256
)

var (
	// ErrNotConnected is generated when a read or write is attempted on a nil Transport
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrLineTooLong is generated when no terminator is seen within maxLineLength bytes
	ErrLineTooLong = errors.New("line terminator not found within maximum line length")
)

// Flusher discards data received from the remote but not yet read
type Flusher interface {
	Flush() error
}

// Transport is a byte channel to a remote device.  *serial.Port satisfies it.
type Transport interface {
	io.ReadWriteCloser
	Flusher
}

// Opener opens a Transport by device name, e.g. /dev/ttyACM0 or COM3
type Opener func(name string) (Transport, error)

// TransportError is generated when a port could not be opened
type TransportError struct {
	Port string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not open port %s: %v", e.Port, e.Err)
}

// Cause returns the underlying error, for github.com/pkg/errors
func (e *TransportError) Cause() error {
	return e.Err
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// SerialConf makes a new serial.Config with 8N1 framing
func SerialConf(name string, baud int, timeout time.Duration) *serial.Config {
	return &serial.Config{
		Name:        name,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: timeout}
}

// SerialOpener returns an Opener that opens tarm/serial ports.
//
// Opens are retried with an exponential backoff for about a second; a port
// that was closed an instant ago may still report busy.  Ports that do not
// exist or cannot be accessed fail on the first attempt.
func SerialOpener(baud int, timeout time.Duration) Opener {
	return func(name string) (Transport, error) {
		var port *serial.Port
		op := func() error {
			p, err := serial.OpenPort(SerialConf(name, baud, timeout))
			if err != nil {
				if os.IsNotExist(err) || os.IsPermission(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			port = p
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         250 * time.Millisecond,
			MaxElapsedTime:      1 * time.Second,
			Clock:               backoff.SystemClock})
		if err != nil {
			return nil, &TransportError{Port: name, Err: err}
		}
		return port, nil
	}
}

// ReadLine reads from r one byte at a time until LineTerminator, which is
// stripped.  If r returns no data (the read timeout elapsed) the bytes seen so
// far are returned with a nil error, so a silent remote yields an empty line.
func ReadLine(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, ErrNotConnected
	}
	var (
		b   [1]byte
		buf = make([]byte, 0, 32)
	)
	for len(buf) < maxLineLength {
		n, err := r.Read(b[:])
		if n == 1 {
			if b[0] == LineTerminator {
				return buf, nil
			}
			buf = append(buf, b[0])
		}
		if err == io.EOF || (n == 0 && err == nil) {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
	}
	return buf, ErrLineTooLong
}

// ReadExact reads up to n bytes from r.  Fewer are returned, without error,
// when r stops producing data before n bytes arrive.
func ReadExact(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		return nil, ErrNotConnected
	}
	buf := make([]byte, n)
	nTotal := 0
	for nTotal < n {
		nr, err := r.Read(buf[nTotal:])
		nTotal += nr
		if err == io.EOF || (nr == 0 && err == nil) {
			break
		}
		if err != nil {
			return buf[:nTotal], err
		}
	}
	return buf[:nTotal], nil
}
