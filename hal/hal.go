package hal

import (
	"errors"
	"strconv"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// Halter ends the program with a status code. Implementations do not return
// control to the caller.
type Halter interface {
	Halt(code int)
}

var ErrNotImplemented = errors.New("not implemented")

// HaltError is returned by the host runners once a Halter has been invoked.
type HaltError struct {
	Code int
}

func (e *HaltError) Error() string { return "halted with status " + strconv.Itoa(e.Code) }

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined; one tick per host step.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the runtime demos and the
// outside world.
type HAL interface {
	Logger() Logger
	Halter() Halter
	Display() Display
	Time() Time
}
