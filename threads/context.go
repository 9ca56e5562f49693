package threads

// resumption is what a parked slab receives when it is resumed.
type resumption struct {
	payload  int
	pristine bool
}

// slab is the execution resource of one thread slot: the goroutine that owns
// the slot's reserved stack. It is parked on wake whenever it is not running.
type slab struct {
	id   int
	wake chan resumption
}

func newSlab(id int) *slab {
	// One buffered slot lets a thread resume its own checkpoint.
	return &slab{id: id, wake: make(chan resumption, 1)}
}

// checkpoint is a resumable execution point of a slab. Copies resume the
// same point; the zero checkpoint is not resumable.
type checkpoint struct {
	s        *slab
	pristine bool
}

// pristine is the point where the slab's dispatcher waits for a new thread.
func (s *slab) pristine() checkpoint {
	return checkpoint{s: s, pristine: true}
}

// save captures the point where the slab parks in its next suspend.
func (s *slab) save() checkpoint {
	return checkpoint{s: s}
}

func (c checkpoint) valid() bool { return c.s != nil }

// resume hands payload to the goroutine parked at c. Payloads are nonzero,
// so a resumed point can always tell it was resumed.
func (c checkpoint) resume(payload int) {
	c.s.wake <- resumption{payload: payload, pristine: c.pristine}
}

// suspend parks the calling goroutine until its slab is resumed.
func (s *slab) suspend() resumption {
	return <-s.wake
}

// switchTo resumes to and parks s. Nothing shared may be touched between the
// two: the resumed goroutine owns the runtime from the moment of the send.
func (s *slab) switchTo(to checkpoint, payload int) resumption {
	to.resume(payload)
	return s.suspend()
}
