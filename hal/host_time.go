package hal

// hostTime emits one tick per host loop step. Ticks are dropped, not
// queued, when nobody is listening.
type hostTime struct {
	ch  chan uint64
	seq uint64
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1)}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

func (t *hostTime) step() {
	t.seq++
	select {
	case t.ch <- t.seq:
	default:
		// Replace a stale tick so readers always observe the newest one.
		select {
		case <-t.ch:
		default:
		}
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
