package arduino

import (
	"bytes"
	"io"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/idiap/twister/comm"
)

// ErrClosed is generated when a closed Mock is read or written
var ErrClosed = errors.New("mock port is closed")

// Mock emulates a board running the twister firmware.  It satisfies
// comm.Transport and is what dummy mode runs on, so the motion code is the
// same with or without hardware.
//
// Replies are queued as instructions are written and handed out by Read.
// When nothing is queued Read reports a timeout.
type Mock struct {
	sync.Mutex

	// Name and Version are the replies to FIR and VER
	Name    string
	Version string

	// Status is returned for every turn command
	Status Status

	// Silent mocks a device that never answers
	Silent bool

	open   bool
	in     []byte
	out    []byte
	steps  []int
	resets int
	closes int
}

// NewMock returns a Mock that satisfies the requirements of cfg
func NewMock(cfg Config) *Mock {
	return &Mock{
		Name:    cfg.FirmwareName,
		Version: cfg.MinimumVersion,
		Status:  StatusAck,
		open:    true}
}

// Write consumes instructions
func (m *Mock) Write(p []byte) (int, error) {
	m.Lock()
	defer m.Unlock()
	if !m.open {
		return 0, ErrClosed
	}
	m.in = append(m.in, p...)
	m.process()
	return len(p), nil
}

// process executes every complete instruction in m.in.  The lock must be held.
func (m *Mock) process() {
	for len(m.in) > 0 {
		switch {
		case m.in[0] == TurnCodePrefix:
			if len(m.in) < RotateFrameSize {
				return
			}
			steps, _ := DecodeRotate(m.in[:RotateFrameSize])
			m.in = m.in[RotateFrameSize:]
			glog.Infof("Dummy: rotating the twister by %d steps", steps)
			m.steps = append(m.steps, steps)
			m.reply([]byte{byte(m.Status)})
		case len(m.in) < len(FirmwareCode):
			return
		case bytes.HasPrefix(m.in, []byte(FirmwareCode)):
			m.in = m.in[len(FirmwareCode):]
			m.reply([]byte(m.Name + "\r\n"))
		case bytes.HasPrefix(m.in, []byte(VersionCode)):
			m.in = m.in[len(VersionCode):]
			m.reply([]byte(m.Version + "\r\n"))
		case bytes.HasPrefix(m.in, []byte(ResetCode)):
			m.in = m.in[len(ResetCode):]
			m.resets++
		default:
			// unknown byte, drop it like the firmware does
			m.in = m.in[1:]
		}
	}
}

func (m *Mock) reply(b []byte) {
	if !m.Silent {
		m.out = append(m.out, b...)
	}
}

// Read hands out queued replies
func (m *Mock) Read(p []byte) (int, error) {
	m.Lock()
	defer m.Unlock()
	if !m.open {
		return 0, ErrClosed
	}
	if len(m.out) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.out)
	m.out = m.out[n:]
	return n, nil
}

// Flush drops unread replies
func (m *Mock) Flush() error {
	m.Lock()
	defer m.Unlock()
	m.out = nil
	return nil
}

// Close closes the mock.  Closing twice is not an error, but is counted.
func (m *Mock) Close() error {
	m.Lock()
	defer m.Unlock()
	m.open = false
	m.closes++
	return nil
}

// Reopen opens a closed mock again with empty buffers, as a fresh port would be
func (m *Mock) Reopen() {
	m.Lock()
	defer m.Unlock()
	m.open = true
	m.in = nil
	m.out = nil
}

// IsOpen is true until Close is called
func (m *Mock) IsOpen() bool {
	m.Lock()
	defer m.Unlock()
	return m.open
}

// Steps returns the step counts of every turn command received
func (m *Mock) Steps() []int {
	m.Lock()
	defer m.Unlock()
	return append([]int(nil), m.steps...)
}

// Resets returns the number of reset instructions received
func (m *Mock) Resets() int {
	m.Lock()
	defer m.Unlock()
	return m.resets
}

// Closes returns the number of times Close was called
func (m *Mock) Closes() int {
	m.Lock()
	defer m.Unlock()
	return m.closes
}

// MockOpener returns an opener over a set of mocks keyed by port name.
// Opening a port reopens its mock; unknown ports fail to open.
func MockOpener(boards map[string]*Mock) comm.Opener {
	return func(name string) (comm.Transport, error) {
		m, ok := boards[name]
		if !ok {
			return nil, errors.Errorf("no such port %s", name)
		}
		m.Reopen()
		return m, nil
	}
}
