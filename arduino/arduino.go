// Package arduino talks to an Arduino running the ArduinoPyTwister firmware,
// which drives a stepper motor through a SparkFun EasyDriver.
//
// The firmware understands four instructions, all sent as raw ASCII:
//
//	RES            reset the board, no reply
//	FIR            reply with the firmware name and a newline
//	VER            reply with the firmware version and a newline
//	T <int16 LE>   turn by a signed number of steps, reply with one status byte
//
// Finding the board is done in two phases.  Scan opens each candidate port,
// checks the firmware and closes it again, returning only the name of the port
// that passed.  The caller then opens that port for use with OpenAndInitialize.
package arduino

import (
	"time"

	"github.com/pkg/errors"
)

// Instruction codes understood by the firmware
const (
	ResetCode      = "RES"
	FirmwareCode   = "FIR"
	VersionCode    = "VER"
	TurnCodePrefix = 'T'
)

// Firmware requirements and motor driver parameters
const (
	RequiredFirmwareName   = "ArduinoPyTwister"
	MinimumFirmwareVersion = "0.1"

	// StepSize is the rotation of one step in degrees.  The EasyDriver runs in
	// eighth-step mode: 1.8° / 8 = 0.225°
	//
	//	steps   angle    steps in 180°   steps in 360°
	//	    1   0.225°             800            1600
	//	    8     1.8°             100             200
	//	   80      18°              10              20
	//	  400      90°               2               4
	//	  800     180°               1               2
	StepSize = 0.225

	// InitializeDelay is how long the board takes to boot after the port is opened
	InitializeDelay = 2 * time.Second

	// ReadTimeout bounds every read from the port
	ReadTimeout = 5 * time.Second

	// Baud is the serial line rate of the firmware
	Baud = 9600
)

var (
	// ErrNoPorts is generated when the host has no serial ports at all
	ErrNoPorts = errors.New("did not find any COM ports")

	// ErrNoArduinoPorts is generated when no serial port describes itself as an Arduino
	ErrNoArduinoPorts = errors.New("did not find any Arduino ports, check that an Arduino is connected")

	// ErrNoTwister is generated when no Arduino port passes firmware verification
	ErrNoTwister = errors.New("did not find a twister Arduino connected to any port, " +
		"check the connected Arduino has the correct firmware and version uploaded")
)

// Config holds the firmware requirements and timing of a twister.
// It is passed by value and never modified after construction.
type Config struct {
	// FirmwareName must match the reply to FIR exactly
	FirmwareName string

	// MinimumVersion is the oldest acceptable reply to VER
	MinimumVersion string

	// StepSize is degrees per motor step
	StepSize float64

	// InitializeDelay is slept after opening a port
	InitializeDelay time.Duration

	// ReadTimeout is the read timeout of the port
	ReadTimeout time.Duration

	// Baud is the serial line rate
	Baud int
}

// DefaultConfig returns the Config matching the ArduinoPyTwister firmware
func DefaultConfig() Config {
	return Config{
		FirmwareName:    RequiredFirmwareName,
		MinimumVersion:  MinimumFirmwareVersion,
		StepSize:        StepSize,
		InitializeDelay: InitializeDelay,
		ReadTimeout:     ReadTimeout,
		Baud:            Baud}
}

// Identity is the firmware name and version reported by a board
type Identity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
