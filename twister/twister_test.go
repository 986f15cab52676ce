package twister

import (
	"errors"
	"fmt"
	"io"
	"math"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idiap/twister/arduino"
	"github.com/idiap/twister/comm"
)

const delta = 1e-9

func testConfig() arduino.Config {
	cfg := arduino.DefaultConfig()
	cfg.InitializeDelay = 0
	return cfg
}

func newMockTwister() (*Twister, *arduino.Mock) {
	cfg := testConfig()
	m := arduino.NewMock(cfg)
	return New(m, cfg), m
}

func TestToSteps(t *testing.T) {
	tw, _ := newMockTwister()
	cases := []struct {
		deg   float64
		steps int
		angle float64
	}{
		{90, 400, 90},
		{91, 404, 90.9},
		{-91, -404, -90.9},
		{0.2, 0, 0},
		{-0.2, 0, 0},
		{0.225, 1, 0.225},
		{360, 1600, 360},
	}
	for _, c := range cases {
		steps, angle, err := tw.ToSteps(c.deg)
		require.NoError(t, err, "%v", c.deg)
		assert.Equal(t, c.steps, steps, "steps for %v", c.deg)
		assert.InDelta(t, c.angle, angle, delta, "angle for %v", c.deg)
	}
}

func TestRotateRelSequence(t *testing.T) {
	tw, m := newMockTwister()
	want := []float64{90, -90, 360}
	for i, deg := range []float64{90, -180, 450} {
		angle, err := tw.RotateRel(deg)
		require.NoError(t, err)
		assert.InDelta(t, want[i], angle, delta)
	}
	assert.Equal(t, []int{400, -800, 2000}, m.Steps())
	assert.Equal(t, 1600, tw.Steps())
}

func TestRotateAbsSequence(t *testing.T) {
	tw, m := newMockTwister()
	for _, deg := range []float64{90, -180, 360, 0} {
		angle, err := tw.RotateAbs(deg)
		require.NoError(t, err)
		assert.InDelta(t, deg, angle, delta)
	}
	assert.Equal(t, []int{400, -1200, 2400, -1600}, m.Steps())
}

func TestRotateRelTruncates(t *testing.T) {
	tw, m := newMockTwister()
	angle, err := tw.RotateRel(91)
	require.NoError(t, err)
	assert.InDelta(t, 90.9, angle, delta)
	assert.Equal(t, []int{404}, m.Steps())
}

func TestRotateSmallerThanAStepSendsZero(t *testing.T) {
	tw, m := newMockTwister()
	angle, err := tw.RotateRel(0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, angle)
	assert.Equal(t, []int{0}, m.Steps())
}

func TestZero(t *testing.T) {
	tw, m := newMockTwister()
	_, err := tw.RotateRel(45)
	require.NoError(t, err)
	tw.Zero()
	assert.Equal(t, 0.0, tw.Angle())
	angle, err := tw.RotateAbs(45)
	require.NoError(t, err)
	assert.InDelta(t, 45, angle, delta)
	assert.Equal(t, []int{200, 200}, m.Steps())
}

func TestRotateDeviceError(t *testing.T) {
	tw, m := newMockTwister()
	m.Status = arduino.StatusErr
	angle, err := tw.RotateRel(90)
	assert.True(t, errors.Is(err, arduino.ErrDeviceReportedError))
	assert.InDelta(t, 90, angle, delta)
	assert.InDelta(t, 90, tw.Angle(), delta)
}

func TestRotateUnknownStatus(t *testing.T) {
	tw, m := newMockTwister()
	m.Status = arduino.Status(7)
	angle, err := tw.RotateRel(90)
	var uerr *arduino.UnknownStatusError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, byte(7), uerr.Value)
	assert.InDelta(t, 90, angle, delta)
}

func TestRotateStatusTimeout(t *testing.T) {
	tw, m := newMockTwister()
	m.Silent = true
	angle, err := tw.RotateRel(90)
	assert.Equal(t, ErrStatusTimeout, err)
	assert.InDelta(t, 90, angle, delta)
	assert.Equal(t, []int{400}, m.Steps())
}

func TestRotateOutOfRange(t *testing.T) {
	tw, m := newMockTwister()
	_, err := tw.RotateRel(arduino.StepSize * 40000)
	var derr *DegreesError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, arduino.StepSize*40000, derr.Degrees)
	assert.Equal(t, 0.0, tw.Angle())
	assert.Empty(t, m.Steps())

	var rerr *arduino.RangeError
	_, err = tw.RotateSteps(arduino.MaxSteps + 1)
	assert.True(t, errors.As(err, &rerr))
	assert.Empty(t, m.Steps())
}

func TestRotateNotFinite(t *testing.T) {
	tw, m := newMockTwister()
	_, err := tw.RotateRel(45)
	require.NoError(t, err)
	for _, deg := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e19, -1e19} {
		angle, err := tw.RotateRel(deg)
		var derr *DegreesError
		require.True(t, errors.As(err, &derr), "%v", deg)
		assert.Contains(t, err.Error(), fmt.Sprintf("%g degrees", deg))
		assert.InDelta(t, 45, angle, delta)

		_, _, err = tw.ToSteps(deg)
		assert.Error(t, err, "%v", deg)
	}
	_, err = tw.RotateAbs(math.NaN())
	assert.Error(t, err)
	assert.InDelta(t, 45, tw.Angle(), delta)
	assert.Equal(t, []int{200}, m.Steps())
}

type brokenWriter struct {
	*arduino.Mock
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestRotateWriteFailureKeepsAngle(t *testing.T) {
	cfg := testConfig()
	tw := New(brokenWriter{arduino.NewMock(cfg)}, cfg)
	angle, err := tw.RotateRel(90)
	assert.Error(t, err)
	assert.Equal(t, io.ErrClosedPipe, pkgerrors.Cause(err))
	assert.Equal(t, 0.0, angle)
	assert.Equal(t, 0, tw.Steps())
}

func TestRotateSteps(t *testing.T) {
	tw, m := newMockTwister()
	angle, err := tw.RotateSteps(-200)
	require.NoError(t, err)
	assert.InDelta(t, -45, angle, delta)
	angle, err = tw.RotateSteps(200)
	require.NoError(t, err)
	assert.InDelta(t, 0, angle, delta)
	assert.Equal(t, []int{-200, 200}, m.Steps())
}

func TestResetDeviceKeepsAngle(t *testing.T) {
	tw, m := newMockTwister()
	_, err := tw.RotateRel(90)
	require.NoError(t, err)
	require.NoError(t, tw.ResetDevice())
	assert.Equal(t, 1, m.Resets())
	assert.InDelta(t, 90, tw.Angle(), delta)
}

func TestRaw(t *testing.T) {
	tw, _ := newMockTwister()
	reply, err := tw.Raw(arduino.FirmwareCode)
	require.NoError(t, err)
	assert.Equal(t, arduino.RequiredFirmwareName, reply)

	reply, err = tw.Raw("???")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestClose(t *testing.T) {
	tw, m := newMockTwister()
	require.NoError(t, tw.Close())
	assert.False(t, m.IsOpen())
	require.NoError(t, tw.Close())
	assert.Equal(t, 1, m.Closes())

	_, err := tw.RotateRel(90)
	assert.Equal(t, comm.ErrNotConnected, err)
	assert.Equal(t, comm.ErrNotConnected, tw.ResetDevice())
	_, err = tw.Raw(arduino.FirmwareCode)
	assert.Equal(t, comm.ErrNotConnected, err)
}

func TestDummy(t *testing.T) {
	tw := NewDummy(testConfig())
	assert.True(t, tw.Dummy())
	assert.Equal(t, arduino.RequiredFirmwareName, tw.Identity().Name)
	angle, err := tw.RotateAbs(180)
	require.NoError(t, err)
	assert.InDelta(t, 180, angle, delta)
}

func listOf(cands ...arduino.Candidate) arduino.Lister {
	return func() ([]arduino.Candidate, error) {
		return cands, nil
	}
}

func TestConnectWithNoPorts(t *testing.T) {
	_, err := ConnectWith(testConfig(), listOf(), arduino.MockOpener(nil))
	require.Error(t, err)
	assert.Equal(t, arduino.ErrNoPorts, pkgerrors.Cause(err))
	assert.Contains(t, err.Error(), connectFailed)
}

func TestConnectWithListError(t *testing.T) {
	boom := errors.New("enumeration failed")
	list := func() ([]arduino.Candidate, error) { return nil, boom }
	_, err := ConnectWith(testConfig(), list, arduino.MockOpener(nil))
	assert.Equal(t, boom, pkgerrors.Cause(err))
}

func TestConnectWithNoArduino(t *testing.T) {
	list := listOf(arduino.Candidate{Name: "/dev/ttyS0", Description: "ttyS0"})
	_, err := ConnectWith(testConfig(), list, arduino.MockOpener(nil))
	assert.Equal(t, arduino.ErrNoArduinoPorts, pkgerrors.Cause(err))
}

func TestConnectWithNoTwister(t *testing.T) {
	cfg := testConfig()
	other := arduino.NewMock(cfg)
	other.Name = "SomethingElse"
	boards := map[string]*arduino.Mock{"/dev/ttyACM0": other}
	list := listOf(arduino.Candidate{Name: "/dev/ttyACM0", Description: "Arduino Uno"})
	_, err := ConnectWith(cfg, list, arduino.MockOpener(boards))
	assert.Equal(t, arduino.ErrNoTwister, pkgerrors.Cause(err))
	assert.False(t, other.IsOpen())
}

func TestConnectWithSecondPortWins(t *testing.T) {
	cfg := testConfig()
	other := arduino.NewMock(cfg)
	other.Name = "SomethingElse"
	good := arduino.NewMock(cfg)
	good.Version = "0.2"
	boards := map[string]*arduino.Mock{"/dev/ttyACM0": other, "/dev/ttyACM1": good}
	list := listOf(
		arduino.Candidate{Name: "/dev/ttyACM0", Description: "Arduino Uno"},
		arduino.Candidate{Name: "/dev/ttyUSB0", Description: "FT232R USB UART"},
		arduino.Candidate{Name: "/dev/ttyACM1", Description: "Arduino Uno"})

	tw, err := ConnectWith(cfg, list, arduino.MockOpener(boards))
	require.NoError(t, err)
	assert.False(t, other.IsOpen())
	assert.Equal(t, 1, other.Closes())
	assert.True(t, good.IsOpen())
	assert.Equal(t, 1, good.Closes())
	assert.Equal(t, arduino.Identity{Name: arduino.RequiredFirmwareName, Version: "0.2"}, tw.Identity())

	_, err = tw.RotateRel(90)
	require.NoError(t, err)
	assert.Equal(t, []int{400}, good.Steps())
}

func TestConnectPort(t *testing.T) {
	cfg := testConfig()
	good := arduino.NewMock(cfg)
	boards := map[string]*arduino.Mock{"COM3": good}
	tw, err := ConnectPort(cfg, arduino.MockOpener(boards), "COM3")
	require.NoError(t, err)
	assert.False(t, tw.Dummy())

	_, err = ConnectPort(cfg, arduino.MockOpener(boards), "COM4")
	assert.Equal(t, arduino.ErrNoTwister, pkgerrors.Cause(err))
}
