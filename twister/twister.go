// Package twister offers high level control of a stepper motor turntable
// using absolute and relative degree commands.
//
// The motor moves in whole steps, so every request is truncated toward zero to
// a multiple of the step size before it is sent.  The angle reported by a
// Twister is the sum of the rotations actually sent since the last Zero, never
// the requested values; a 91° request with 0.225° steps turns 90.9°.  Repeated
// absolute moves to the same target may therefore land on slightly different
// angles depending on the history of moves.
package twister

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/idiap/twister/arduino"
	"github.com/idiap/twister/comm"
)

// Axis is the name of the single axis of a twister
const Axis = "twister"

var (
	// ErrStatusTimeout is generated when no status byte follows a turn command
	ErrStatusTimeout = errors.New("no status code received from Arduino before the read timeout")

	// ErrUnknownAxis is generated when a motion method is called with an axis other than Axis
	ErrUnknownAxis = errors.New("unknown axis, a twister has a single axis named " + Axis)
)

const connectFailed = "could not connect to Arduino driver"

// Twister is a turntable on a verified Arduino.  Its methods are safe for
// concurrent use; access to the port is serialized.
type Twister struct {
	mu sync.Mutex

	cfg   arduino.Config
	conn  comm.Transport
	id    arduino.Identity
	dummy bool

	angle float64
	steps int
}

// New returns a Twister driving an already verified connection
func New(conn comm.Transport, cfg arduino.Config) *Twister {
	return &Twister{cfg: cfg, conn: conn}
}

// NewDummy returns a Twister that runs on an emulated board.  No hardware is
// needed and the step counts are only logged.
func NewDummy(cfg arduino.Config) *Twister {
	glog.Warning("dummy mode activated")
	mock := arduino.NewMock(cfg)
	return &Twister{
		cfg:   cfg,
		conn:  mock,
		id:    arduino.Identity{Name: mock.Name, Version: mock.Version},
		dummy: true}
}

// Connect finds the twister Arduino among the serial ports of the host and
// opens it
func Connect(cfg arduino.Config) (*Twister, error) {
	return ConnectWith(cfg, arduino.ListPorts, comm.SerialOpener(cfg.Baud, cfg.ReadTimeout))
}

// ConnectWith is Connect with the port listing and opening supplied by the caller
func ConnectWith(cfg arduino.Config, list arduino.Lister, open comm.Opener) (*Twister, error) {
	cands, err := list()
	if err != nil {
		return nil, errors.Wrap(err, connectFailed)
	}
	if len(cands) == 0 {
		return nil, errors.Wrap(arduino.ErrNoPorts, connectFailed)
	}
	ports := arduino.ArduinoPorts(cands)
	if len(ports) == 0 {
		return nil, errors.Wrap(arduino.ErrNoArduinoPorts, connectFailed)
	}
	return connect(cfg, open, ports)
}

// ConnectPort verifies and opens the twister on a known port
func ConnectPort(cfg arduino.Config, open comm.Opener, port string) (*Twister, error) {
	return connect(cfg, open, []string{port})
}

func connect(cfg arduino.Config, open comm.Opener, ports []string) (*Twister, error) {
	neg := arduino.NewNegotiator(cfg, open)
	found, ok := neg.Scan(ports)
	if !ok {
		return nil, errors.Wrap(arduino.ErrNoTwister, connectFailed)
	}
	conn, err := neg.OpenAndInitialize(found.Port)
	if err != nil {
		return nil, errors.Wrap(err, connectFailed)
	}
	glog.Infof("twister connected on %s", found.Port)
	t := New(conn, cfg)
	t.id = found.Identity
	return t, nil
}

// Config returns the configuration of the twister
func (t *Twister) Config() arduino.Config {
	return t.cfg
}

// Identity returns the firmware name and version found during verification.
// It is empty for a Twister built with New.
func (t *Twister) Identity() arduino.Identity {
	return t.id
}

// Dummy is true if the twister runs without hardware
func (t *Twister) Dummy() bool {
	return t.dummy
}

// Zero sets the current angle as 0
func (t *Twister) Zero() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.angle = 0
}

// Angle returns the angle of the twister in degrees
func (t *Twister) Angle() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.angle
}

// Steps returns the net number of steps sent since the twister was created
func (t *Twister) Steps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.steps
}

// DegreesError is generated when an angle does not fit in one turn command.
// NaN and infinite angles never fit.
type DegreesError struct {
	Degrees  float64
	StepSize float64
}

func (e *DegreesError) Error() string {
	return fmt.Sprintf("cannot turn by %g degrees: one turn command moves between %g and %g degrees",
		e.Degrees, float64(arduino.MinSteps)*e.StepSize, float64(arduino.MaxSteps)*e.StepSize)
}

// ToSteps converts degrees to a whole number of motor steps, truncating toward
// zero, and returns the angle those steps actually produce.  A *DegreesError
// is returned when the steps do not fit in a turn command.
func (t *Twister) ToSteps(degrees float64) (int, float64, error) {
	q := math.Trunc(degrees / t.cfg.StepSize)
	if math.IsNaN(q) || q < arduino.MinSteps || q > arduino.MaxSteps {
		return 0, 0, &DegreesError{Degrees: degrees, StepSize: t.cfg.StepSize}
	}
	steps := int(q)
	return steps, float64(steps) * t.cfg.StepSize, nil
}

// RotateRel rotates the twister by a relative angle in degrees and returns the
// angle after rotation.
//
// Once the turn command has been written the angle is advanced, even if the
// status that follows is an error: the motor may have moved.  The error tells
// the caller what the firmware said (arduino.ErrDeviceReportedError,
// *arduino.UnknownStatusError or ErrStatusTimeout).
func (t *Twister) RotateRel(degrees float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rotateRel(degrees)
}

// RotateAbs rotates the twister to an absolute angle in degrees and returns the
// angle after rotation
func (t *Twister) RotateAbs(degrees float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rotateRel(degrees - t.angle)
}

// RotateSteps rotates the twister by a raw number of steps and returns the
// angle after rotation
func (t *Twister) RotateSteps(steps int) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sent, err := t.rotateBySteps(steps)
	if sent {
		t.angle += float64(steps) * t.cfg.StepSize
	}
	return t.angle, err
}

func (t *Twister) rotateRel(degrees float64) (float64, error) {
	steps, quantized, err := t.ToSteps(degrees)
	if err != nil {
		return t.angle, err
	}
	sent, err := t.rotateBySteps(steps)
	if sent {
		t.angle += quantized
	}
	return t.angle, err
}

// rotateBySteps sends a turn command and reads its status.  sent is true once
// the command is written.  The lock must be held.
func (t *Twister) rotateBySteps(steps int) (sent bool, err error) {
	frame, err := arduino.EncodeRotate(steps)
	if err != nil {
		return false, err
	}
	if t.conn == nil {
		return false, comm.ErrNotConnected
	}
	if _, err = t.conn.Write(frame); err != nil {
		return false, errors.Wrap(err, "sending turn command")
	}
	t.steps += steps
	resp, err := comm.ReadExact(t.conn, 1)
	if err != nil {
		return true, errors.Wrap(err, "reading turn status")
	}
	if len(resp) == 0 {
		return true, ErrStatusTimeout
	}
	status := arduino.DecodeStatus(resp[0])
	glog.V(2).Infof("status code is >%d<.", resp[0])
	if err = status.Err(); err != nil {
		glog.Errorf("turn by %d steps: %v", steps, err)
	}
	return true, err
}

// ResetDevice sends the reset instruction to the Arduino.  The angle is kept.
func (t *Twister) ResetDevice() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return comm.ErrNotConnected
	}
	return arduino.Reset(t.conn)
}

// Raw sends a command to the Arduino and returns the line it replies with.
// An empty string means the board said nothing before the read timeout.
func (t *Twister) Raw(cmd string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return "", comm.ErrNotConnected
	}
	reply, err := arduino.Query(t.conn, cmd)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Close releases the port
func (t *Twister) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
