package programs

import (
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spindle/threads"
)

type output struct {
	mu    sync.Mutex
	lines []string
}

func (o *output) WriteLineString(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, s)
}

func (o *output) WriteLineBytes(b []byte) { o.WriteLineString(string(b)) }

func (o *output) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...)
}

type halter chan int

func (h halter) Halt(code int) {
	h <- code
	runtime.Goexit()
}

func runProgram(t *testing.T, name string, maxThreads int) (int, []string) {
	t.Helper()

	p, ok := Lookup(name)
	require.True(t, ok, "program %q", name)

	out := &output{}
	h := make(halter, 1)
	rt := threads.New(threads.Config{MaxThreads: maxThreads, Logger: out, Halter: h})
	go func() {
		rt.Init()
		p.Run(Env{RT: rt, Out: out})
		rt.Exit()
	}()

	select {
	case code := <-h:
		return code, out.all()
	case <-time.After(2 * time.Second):
		t.Fatalf("program %s did not halt", name)
		return -1, nil
	}
}

func TestNamesSorted(t *testing.T) {
	require.Equal(t, []string{"buried", "exhaust", "panic", "pingpong", "reuse", "roundrobin"}, Names())
	_, ok := Lookup("missing")
	require.False(t, ok)
}

func TestPingPong(t *testing.T) {
	code, lines := runProgram(t, "pingpong", 4)
	require.Equal(t, 0, code)
	require.Equal(t, []string{
		"spawned ping=1 pong=2",
		"ping 0", "pong 0",
		"ping 1", "pong 1",
		"ping 2", "pong 2",
	}, lines)
}

func TestRoundRobin(t *testing.T) {
	code, lines := runProgram(t, "roundrobin", 4)
	require.Equal(t, 0, code)
	require.Equal(t, []string{
		"spawned counter 1",
		"spawned counter 2",
		"spawned counter 3",
		"thread 1: 1/3", "thread 2: 1/3", "thread 3: 1/3",
		"thread 1: 2/3", "thread 2: 2/3", "thread 3: 2/3",
		"thread 1: 3/3", "thread 2: 3/3", "thread 3: 3/3",
	}, lines)
}

func TestExhaust(t *testing.T) {
	code, lines := runProgram(t, "exhaust", 5)
	require.Equal(t, 0, code)
	require.Equal(t, "spawned 4 threads, capacity 5, live 5", lines[0])
	require.Equal(t, "spawn on full table returned -1", lines[1])
	require.Equal(t, []string{
		"thread 1: arg 0", "thread 2: arg 1", "thread 3: arg 2", "thread 4: arg 3",
	}, lines[2:])
}

func TestReuse(t *testing.T) {
	code, lines := runProgram(t, "reuse", 3)
	require.Equal(t, 0, code)
	require.Equal(t, []string{
		"thread 1: arg 1",
		"thread 2: arg 1",
		"all exited, live 1",
		"first=1 second=1 reused=true",
		"thread 1: arg 2",
		"live 1",
	}, lines)
}

func TestBuried(t *testing.T) {
	code, lines := runProgram(t, "buried", 6)
	require.Equal(t, 0, code)
	require.Equal(t, []string{
		"ready [1 2 3 4], yielding to 3",
		"thread 3 ran, ready [1 2 4 0]",
		"thread 1 ran, ready [2 4 0]",
		"thread 2 ran, ready [4 0]",
		"thread 4 ran, ready [0]",
		"back on 0, ready []",
	}, lines)
}

func TestPanicHalts(t *testing.T) {
	code, lines := runProgram(t, "panic", 3)
	require.Equal(t, 2, code)
	require.Equal(t, "thread 1 about to panic", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "threads: panic in thread 1: deliberate panic 42"), lines[1])
	require.NotContains(t, lines, "unreachable")
}

func TestBodies(t *testing.T) {
	require.Equal(t, []string{"count", "echo", "spin"}, BodyNames())

	out := &output{}
	h := make(halter, 1)
	ticks := make(chan uint64, 4)
	for i := 0; i < 4; i++ {
		ticks <- uint64(i)
	}
	rt := threads.New(threads.Config{MaxThreads: 3, Logger: out, Halter: h})
	env := Env{RT: rt, Out: out, Ticks: ticks}

	go func() {
		rt.Init()
		spin, _ := Body("spin", env)
		echo, _ := Body("echo", env)
		rt.Spawn(spin, 2)
		rt.Spawn(echo, 7)
		rt.Exit()
	}()

	select {
	case code := <-h:
		require.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("bodies did not halt")
	}
	require.Equal(t, []string{"thread 2: arg 7"}, out.all())
	require.Len(t, ticks, 2)

	_, ok := Body("missing", env)
	require.False(t, ok)
}
