package threads

import (
	"errors"
	"fmt"
	"unsafe"
)

// StackSize is the stack each thread slot reserves at Init.
const StackSize = 64 << 10

const pageSize = 4096

// ErrStackReservation reports a slot stack that was not laid out as requested.
var ErrStackReservation = errors.New("stack space reservation failed")

// reserveStack is the check every carrier runs on its frame. Tests replace it.
var reserveStack = reserve

// reserve checks that buf is one contiguous run of StackSize bytes living in
// the same frame as marker (not moved to the heap), then writes every page
// so the owning goroutine's stack holds it before any thread runs.
func reserve(buf []byte, marker *byte) error {
	if len(buf) != StackSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrStackReservation, len(buf), StackSize)
	}

	lo := uintptr(unsafe.Pointer(&buf[0]))
	hi := uintptr(unsafe.Pointer(&buf[len(buf)-1]))
	at := uintptr(unsafe.Pointer(marker))
	if hi-lo+1 != StackSize {
		return fmt.Errorf("%w: extent is %d bytes", ErrStackReservation, hi-lo+1)
	}
	if at+pageSize < lo || at > hi+pageSize {
		return fmt.Errorf("%w: buffer is not in the carrier frame", ErrStackReservation)
	}

	for i := 0; i < len(buf); i += pageSize {
		buf[i] = 0
	}
	buf[len(buf)-1] = 0
	return nil
}

// carry is the body of a slot's carrier goroutine. Its frame holds the slot's
// reserved stack for the life of the process and every thread the slot ever
// runs executes above it.
func (r *Runtime) carry(s *slab, ready chan<- error) {
	var marker byte
	var stack [StackSize]byte
	if err := reserveStack(stack[:], &marker); err != nil {
		ready <- err
		return
	}
	ready <- nil

	res := s.suspend()
	if !res.pristine || res.payload-1 != s.id {
		r.fatalf("threads: slot %d started with payload %d", s.id, res.payload)
	}
	r.current = s.id

	for {
		t := r.threads[s.id]
		r.invoke(s.id, t.entry, t.arg)
		r.retire()
		if r.current != s.id || !r.threads[s.id].valid {
			r.fatalf("threads: slot %d resumed while thread %d is current", s.id, r.current)
		}
	}
}
