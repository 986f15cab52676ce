package arduino

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const (
	// RotateFrameSize is the length of an encoded turn command
	RotateFrameSize = 3

	// MinSteps and MaxSteps bound the step count of one turn command
	MinSteps = math.MinInt16
	MaxSteps = math.MaxInt16
)

// Status is the byte the firmware returns after a turn command
type Status byte

const (
	// StatusAck is returned on successful completion
	StatusAck Status = 0

	// StatusErr is returned when the firmware could not execute the turn
	StatusErr Status = 1
)

var (
	// ErrDeviceReportedError is generated when the firmware answers a turn with StatusErr
	ErrDeviceReportedError = errors.New("Arduino reported an error executing the turn command")

	// ErrMalformedFrame is generated when decoding a frame that is not a turn command
	ErrMalformedFrame = errors.New("frame is not a 3 byte turn command")
)

// RangeError is generated when a step count does not fit in a turn command
type RangeError struct {
	Steps int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("steps is too big: got %d but should be in [%d, %d]", e.Steps, MinSteps, MaxSteps)
}

// UnknownStatusError is generated when the firmware answers a turn with a
// status byte other than StatusAck or StatusErr.  Whether the motor moved is
// unknown.
type UnknownStatusError struct {
	Value byte
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("Arduino returned status code %d, which is unknown", e.Value)
}

// EncodeRotate assembles a turn command: TurnCodePrefix followed by steps as a
// little-endian two's complement int16.  Out of range steps are rejected, never
// wrapped.
func EncodeRotate(steps int) ([]byte, error) {
	if steps < MinSteps || steps > MaxSteps {
		return nil, &RangeError{Steps: steps}
	}
	frame := make([]byte, RotateFrameSize)
	frame[0] = TurnCodePrefix
	binary.LittleEndian.PutUint16(frame[1:], uint16(int16(steps)))
	return frame, nil
}

// DecodeRotate is the inverse of EncodeRotate
func DecodeRotate(frame []byte) (int, error) {
	if len(frame) != RotateFrameSize || frame[0] != TurnCodePrefix {
		return 0, ErrMalformedFrame
	}
	return int(int16(binary.LittleEndian.Uint16(frame[1:]))), nil
}

// DecodeStatus classifies a status byte.  It never fails; use Known or Err to
// tell the outcomes apart.
func DecodeStatus(b byte) Status {
	return Status(b)
}

// Known is true for StatusAck and StatusErr
func (s Status) Known() bool {
	return s == StatusAck || s == StatusErr
}

// Err returns nil for StatusAck, ErrDeviceReportedError for StatusErr and an
// *UnknownStatusError otherwise
func (s Status) Err() error {
	switch s {
	case StatusAck:
		return nil
	case StatusErr:
		return ErrDeviceReportedError
	default:
		return &UnknownStatusError{Value: byte(s)}
	}
}

func (s Status) String() string {
	switch s {
	case StatusAck:
		return "ACK"
	case StatusErr:
		return "ERR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(s))
	}
}
