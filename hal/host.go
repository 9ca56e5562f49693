package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type hostHAL struct {
	logger *hostLogger
	halter *hostHalter
	fb     *hostFramebuffer
	t      *hostTime
}

// New returns a host HAL implementation.
func New() HAL {
	return newHost(os.Stdout)
}

func newHost(w io.Writer) *hostHAL {
	return &hostHAL{
		logger: &hostLogger{w: w},
		halter: newHostHalter(),
		fb:     newHostFramebuffer(320, 240),
		t:      newHostTime(),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Halter() Halter   { return h.halter }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// hostHalter hands the first status code to the host loop and parks the
// calling goroutine. The loop decides when the process actually ends.
type hostHalter struct {
	once sync.Once
	ch   chan int
}

func newHostHalter() *hostHalter {
	return &hostHalter{ch: make(chan int, 1)}
}

func (h *hostHalter) Halt(code int) {
	h.once.Do(func() { h.ch <- code })
	select {}
}

func (h *hostHalter) halted() <-chan int { return h.ch }
