package arduino

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRotateZero(t *testing.T) {
	frame, err := EncodeRotate(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x54, 0x00, 0x00}, frame)
}

func TestEncodeRotate(t *testing.T) {
	testCases := []struct {
		name   string
		steps  int
		expect []byte
	}{
		{"one", 1, []byte{'T', 0x01, 0x00}},
		{"minus one", -1, []byte{'T', 0xff, 0xff}},
		{"quarter turn", 400, []byte{'T', 0x90, 0x01}},
		{"demo back", -200, []byte{'T', 0x38, 0xff}},
		{"max", MaxSteps, []byte{'T', 0xff, 0x7f}},
		{"min", MinSteps, []byte{'T', 0x00, 0x80}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := EncodeRotate(tc.steps)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, frame)
		})
	}
}

func TestEncodeDecodeRotateCoversInt16(t *testing.T) {
	for steps := MinSteps; steps <= MaxSteps; steps += 127 {
		frame, err := EncodeRotate(steps)
		require.NoError(t, err)
		require.Len(t, frame, RotateFrameSize)
		require.Equal(t, byte(TurnCodePrefix), frame[0])
		back, err := DecodeRotate(frame)
		require.NoError(t, err)
		require.Equal(t, steps, back)
	}
}

func TestEncodeRotateOutOfRange(t *testing.T) {
	for _, steps := range []int{MaxSteps + 1, MinSteps - 1, 1 << 20, -1 << 20} {
		frame, err := EncodeRotate(steps)
		assert.Nil(t, frame)
		var rerr *RangeError
		require.True(t, errors.As(err, &rerr), "steps %d", steps)
		assert.Equal(t, steps, rerr.Steps)
	}
}

func TestDecodeRotateMalformed(t *testing.T) {
	for _, frame := range [][]byte{nil, {'T', 0}, {'X', 0, 0}, {'T', 0, 0, 0}} {
		_, err := DecodeRotate(frame)
		assert.Equal(t, ErrMalformedFrame, err)
	}
}

func TestDecodeStatus(t *testing.T) {
	assert.Equal(t, StatusAck, DecodeStatus(0))
	assert.True(t, DecodeStatus(0).Known())
	assert.NoError(t, DecodeStatus(0).Err())

	assert.Equal(t, StatusErr, DecodeStatus(1))
	assert.True(t, DecodeStatus(1).Known())
	assert.Equal(t, ErrDeviceReportedError, DecodeStatus(1).Err())

	for _, b := range []byte{2, 'T', 0xff} {
		s := DecodeStatus(b)
		assert.False(t, s.Known())
		var uerr *UnknownStatusError
		require.True(t, errors.As(s.Err(), &uerr))
		assert.Equal(t, b, uerr.Value)
	}
	assert.Equal(t, "UNKNOWN(7)", DecodeStatus(7).String())
}
