// Package programs holds demo programs for the thread runtime. Every program
// runs on the initializing thread after Init; the caller exits that thread
// when the program returns.
package programs

import (
	"fmt"
	"sort"

	"spindle/hal"
	"spindle/threads"
)

// Env is what a program or thread body may touch.
type Env struct {
	RT  *threads.Runtime
	Out hal.Logger

	// Ticks paces the spin body. Nil means no pacing.
	Ticks <-chan uint64
}

func (e Env) printf(format string, args ...any) {
	e.Out.WriteLineString(fmt.Sprintf(format, args...))
}

// Program is a named demo.
type Program struct {
	Name string
	Doc  string
	Run  func(Env)
}

var registry = map[string]Program{}

func register(p Program) {
	if _, dup := registry[p.Name]; dup {
		panic("programs: duplicate program " + p.Name)
	}
	registry[p.Name] = p
}

// Lookup returns the program called name.
func Lookup(name string) (Program, bool) {
	p, ok := registry[name]
	return p, ok
}

// Names returns all program names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	register(Program{Name: "pingpong", Doc: "two threads yield directly to each other", Run: pingPong})
	register(Program{Name: "roundrobin", Doc: "three counters share the processor through Schedule", Run: roundRobin})
	register(Program{Name: "exhaust", Doc: "spawn until the thread table is full", Run: exhaust})
	register(Program{Name: "reuse", Doc: "exited slots are handed out again", Run: reuse})
	register(Program{Name: "buried", Doc: "yield into the middle of the ready queue", Run: buried})
	register(Program{Name: "panic", Doc: "a thread body panics", Run: panicking})
}

const (
	rounds = 3
	none   = -1
)

func pingPong(env Env) {
	rt := env.RT
	var ping, pong int
	ping = rt.Spawn(func(n int) {
		for i := 0; i < n; i++ {
			env.printf("ping %d", i)
			rt.Yield(pong)
		}
	}, rounds)
	pong = rt.Spawn(func(n int) {
		for i := 0; i < n; i++ {
			env.printf("pong %d", i)
			if i < n-1 {
				rt.Yield(ping)
			}
		}
	}, rounds)
	env.printf("spawned ping=%d pong=%d", ping, pong)
}

func roundRobin(env Env) {
	for i := 0; i < 3; i++ {
		id := env.RT.Spawn(Count(env), rounds)
		env.printf("spawned counter %d", id)
	}
}

func exhaust(env Env) {
	rt := env.RT
	n := 0
	for {
		id := rt.Spawn(Echo(env), n)
		if id < 0 {
			break
		}
		n++
	}
	env.printf("spawned %d threads, capacity %d, live %d", n, rt.Capacity(), rt.Live())
	env.printf("spawn on full table returned %d", rt.Spawn(Echo(env), 0))
}

func reuse(env Env) {
	rt := env.RT
	first := none
	for {
		id := rt.Spawn(Echo(env), 1)
		if id < 0 {
			break
		}
		if first == none {
			first = id
		}
	}
	rt.Yield(first)
	env.printf("all exited, live %d", rt.Live())

	second := rt.Spawn(Echo(env), 2)
	env.printf("first=%d second=%d reused=%t", first, second, first == second)
	rt.Yield(second)
	env.printf("live %d", rt.Live())
}

func buried(env Env) {
	rt := env.RT
	ids := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		ids = append(ids, rt.Spawn(func(int) {
			env.printf("thread %d ran, ready %v", rt.Current(), rt.Ready())
		}, i))
	}
	target := ids[2]
	env.printf("ready %v, yielding to %d", rt.Ready(), target)
	rt.Yield(target)
	env.printf("back on %d, ready %v", rt.Current(), rt.Ready())
}

func panicking(env Env) {
	rt := env.RT
	id := rt.Spawn(func(arg int) {
		env.printf("thread %d about to panic", rt.Current())
		panic(fmt.Sprintf("deliberate panic %d", arg))
	}, 42)
	rt.Yield(id)
	env.printf("unreachable")
}
