package threads

import "strings"

// PanicInfo contains details about a panic that escaped a thread body.
type PanicInfo struct {
	ThreadID int
	Value    any
	Stack    []byte
}

// exitSignal unwinds a thread body that called Exit back to its dispatcher.
type exitSignal struct{}

// invoke runs one thread body. Exit unwinds through here; any other panic
// halts the process.
func (r *Runtime) invoke(id int, entry func(int), arg int) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if _, ok := v.(exitSignal); ok {
			return
		}
		r.crash(PanicInfo{ThreadID: id, Value: v, Stack: captureStack()})
	}()
	entry(arg)
}

func (r *Runtime) crash(info PanicInfo) {
	r.panicOnce.Do(func() {
		r.reportf("threads: panic in thread %d: %v", info.ThreadID, info.Value)
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			r.report(line)
		}
		if fn := r.cfg.PanicHandler; fn != nil {
			fn(info)
		}
	})
	r.halt(2)
}
