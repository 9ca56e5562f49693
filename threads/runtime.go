// Package threads multiplexes a fixed pool of cooperative threads onto a
// single logical processor. Control moves between threads only at Yield,
// Schedule and Exit; exactly one thread runs at any instant.
package threads

import (
	"fmt"
	"sync"
)

// DefaultMaxThreads is the thread table size used when Config leaves it unset.
const DefaultMaxThreads = 10

// Config describes a Runtime. The zero value is usable.
type Config struct {
	// MaxThreads is the thread table size, including the initializing thread.
	MaxThreads int

	// Logger receives diagnostics. Defaults to stderr.
	Logger Logger

	// Halter ends the process on fatal misuse and when the last thread
	// exits. Defaults to os.Exit.
	Halter Halter

	// Trace logs every context switch.
	Trace bool

	// PanicHandler is invoked once, before the process halts, when a thread
	// body panics. It must not panic.
	PanicHandler func(PanicInfo)
}

type thread struct {
	valid bool
	run   checkpoint
	init  checkpoint
	entry func(int)
	arg   int
}

// Runtime is one thread table together with its ready queue and scheduler
// state. Its methods may only be called by the running thread; the runtime
// provides no locking of its own.
type Runtime struct {
	cfg Config

	initialized bool
	threads     []thread
	slabs       []*slab
	queue       readyQueue

	live     int
	current  int
	previous int
	cursor   int

	panicOnce sync.Once
}

// New returns a runtime. Init must be called before any other method.
func New(cfg Config) *Runtime {
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = DefaultMaxThreads
	}
	if cfg.Logger == nil {
		cfg.Logger = stderrLogger{}
	}
	if cfg.Halter == nil {
		cfg.Halter = exitHalter{}
	}
	return &Runtime{cfg: cfg}
}

// Capacity returns the number of thread slots.
func (r *Runtime) Capacity() int { return r.cfg.MaxThreads }

// Init prepares the runtime and makes the calling goroutine thread 0. It
// reserves one stack per remaining slot and halts if that fails or if Init
// was already called.
func (r *Runtime) Init() {
	if r.initialized {
		r.fatal("Init: should be called only once")
	}

	n := r.cfg.MaxThreads
	r.threads = make([]thread, n)
	r.queue = newReadyQueue(n)
	r.slabs = make([]*slab, n)
	r.slabs[0] = newSlab(0)

	ready := make(chan error, n)
	for i := 1; i < n; i++ {
		r.slabs[i] = newSlab(i)
		go r.carry(r.slabs[i], ready)
	}
	var failed error
	for i := 1; i < n; i++ {
		if err := <-ready; err != nil && failed == nil {
			failed = err
		}
	}
	if failed != nil {
		r.fatalf("Init: %v", failed)
	}

	for i := range r.threads {
		r.threads[i].init = r.slabs[i].pristine()
	}
	r.threads[0].valid = true
	r.threads[0].run = r.threads[0].init

	r.live = 1
	r.current = 0
	r.previous = 0
	r.cursor = 0
	r.initialized = true
}

// Spawn creates a thread that will run entry(arg) and returns its id, or -1
// when no slot is free. The thread does not run until another thread yields
// or schedules to it; when entry returns the thread exits.
func (r *Runtime) Spawn(entry func(arg int), arg int) int {
	r.mustInit("Spawn")

	if entry == nil {
		r.report("Spawn: nil entry function")
		return -1
	}
	if r.live == len(r.threads) {
		return -1
	}

	id := r.freeSlot()
	if id == none {
		return -1
	}
	t := &r.threads[id]
	t.valid = true
	t.run = t.init
	t.entry = entry
	t.arg = arg

	if !r.queue.push(id) {
		r.fatal("Spawn: ready queue overflow")
	}
	r.live++
	return id
}

// freeSlot advances the rotating cursor to the next unused slot. Slot 0
// belongs to the initializing thread and is never handed out.
func (r *Runtime) freeSlot() int {
	n := len(r.threads)
	for i := 0; i < n; i++ {
		r.cursor = (r.cursor + 1) % n
		if r.cursor != 0 && !r.threads[r.cursor].valid {
			return r.cursor
		}
	}
	return none
}

// Yield switches to thread target and returns, once the caller is resumed,
// the id of the thread that yielded back to it. An invalid target is
// reported and -1 returned without touching any state.
func (r *Runtime) Yield(target int) int {
	r.mustInit("Yield")

	if target < 0 || target >= len(r.threads) {
		r.reportf("Yield: %d is not a valid thread ID", target)
		return -1
	}
	if !r.threads[target].valid {
		r.reportf("Yield: thread %d does not exist", target)
		return -1
	}

	cur := r.current
	exiting := !r.threads[cur].valid
	if !exiting && !r.queue.push(cur) {
		r.fatal("Yield: ready queue overflow")
	}
	if exiting && r.live == 1 {
		r.queue.reset()
	} else if !r.queue.remove(target) {
		r.fatalf("Yield: thread %d is not ready", target)
	}

	r.previous = cur
	if r.cfg.Trace {
		r.reportf("threads: switch %d -> %d", cur, target)
	}

	self := r.slabs[cur]
	r.threads[cur].run = self.save()
	to := r.threads[target].run
	if !to.valid() {
		r.fatalf("Yield: thread %d has no context", target)
	}
	res := self.switchTo(to, target+1)

	if res.pristine != exiting || res.payload-1 != cur {
		r.fatalf("threads: slot %d resumed with payload %d", cur, res.payload)
	}
	r.current = res.payload - 1
	return r.previous
}

// Current returns the id of the running thread.
func (r *Runtime) Current() int {
	r.mustInit("Current")
	return r.current
}

// Schedule yields to the longest-waiting ready thread. It returns at once
// when no other thread is ready.
func (r *Runtime) Schedule() {
	r.mustInit("Schedule")

	if r.queue.count() == 0 {
		return
	}
	next, _ := r.queue.front()
	r.Yield(next)
}

// Exit ends the running thread and never returns. Deferred calls of the
// thread body run before control moves on. When the caller is the last
// live thread the process halts with status 0.
func (r *Runtime) Exit() {
	r.mustInit("Exit")

	if r.live == 1 {
		r.halt(0)
	}
	if r.current != 0 {
		panic(exitSignal{})
	}
	r.retire()
	r.fatal("Exit: thread 0 resumed after exit")
}

// retire frees the running thread's slot and switches away. It returns only
// when the slot has been spawned again and scheduled.
func (r *Runtime) retire() {
	if r.live == 1 {
		r.halt(0)
	}
	r.threads[r.current].valid = false
	r.live--
	r.Schedule()
}

// Live returns the number of live threads.
func (r *Runtime) Live() int {
	r.mustInit("Live")
	return r.live
}

// Ready returns the ready queue in scheduling order.
func (r *Runtime) Ready() []int {
	r.mustInit("Ready")
	return r.queue.ids()
}

func (r *Runtime) mustInit(op string) {
	if !r.initialized {
		r.fatalf("%s: must call Init first", op)
	}
}

func (r *Runtime) report(s string) {
	r.cfg.Logger.WriteLineString(s)
}

func (r *Runtime) reportf(format string, args ...any) {
	r.report(fmt.Sprintf(format, args...))
}

func (r *Runtime) fatal(s string) {
	r.report(s)
	r.halt(1)
}

func (r *Runtime) fatalf(format string, args ...any) {
	r.fatal(fmt.Sprintf(format, args...))
}

func (r *Runtime) halt(code int) {
	r.cfg.Halter.Halt(code)
	panic("threads: Halter returned")
}
