package threads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// farMarker lives in static data, nowhere near any goroutine stack.
var farMarker byte

func TestReserveStackFrame(t *testing.T) {
	var marker byte
	var stack [StackSize]byte
	stack[0] = 1
	stack[StackSize-1] = 1

	require.NoError(t, reserve(stack[:], &marker))
	require.Zero(t, stack[0])
	require.Zero(t, stack[StackSize-1])
}

func TestReserveWrongSize(t *testing.T) {
	var marker byte
	var stack [StackSize / 2]byte

	err := reserve(stack[:], &marker)
	require.ErrorIs(t, err, ErrStackReservation)
}

func TestReserveOutsideFrame(t *testing.T) {
	var stack [StackSize]byte

	err := reserve(stack[:], &farMarker)
	require.ErrorIs(t, err, ErrStackReservation)
	require.ErrorContains(t, err, "not in the carrier frame")
}

func TestInitHaltsWhenReservationFails(t *testing.T) {
	reserveStack = func(buf []byte, _ *byte) error { return reserve(buf, &farMarker) }
	t.Cleanup(func() { reserveStack = reserve })

	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().WriteLineString("Init: stack space reservation failed: buffer is not in the carrier frame")

	h := newHaltRecorder()
	rt := New(Config{MaxThreads: 3, Logger: log, Halter: h})
	go rt.Init()

	select {
	case code := <-h.code:
		require.Equal(t, 1, code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for halt")
	}
}

func TestCheckpointSwitchToSelf(t *testing.T) {
	s := newSlab(3)
	res := s.switchTo(s.save(), 4)

	require.Equal(t, resumption{payload: 4}, res)
}

func TestCheckpointPristine(t *testing.T) {
	s := newSlab(1)
	require.True(t, s.pristine().valid())
	require.False(t, checkpoint{}.valid())

	done := make(chan resumption, 1)
	go func() { done <- s.suspend() }()
	s.pristine().resume(2)

	require.Equal(t, resumption{payload: 2, pristine: true}, <-done)
}
