package threads

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *lineRecorder) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// haltRecorder ends the calling goroutine instead of the process.
type haltRecorder struct {
	code chan int
}

func newHaltRecorder() *haltRecorder {
	return &haltRecorder{code: make(chan int, 1)}
}

func (h *haltRecorder) Halt(code int) {
	h.code <- code
	runtime.Goexit()
}

// runScenario runs body as thread 0 of a fresh runtime, exits it when body
// returns, and waits for the process-level halt.
func runScenario(t *testing.T, cfg Config, body func(rt *Runtime)) int {
	t.Helper()

	h := newHaltRecorder()
	cfg.Halter = h
	if cfg.Logger == nil {
		cfg.Logger = &lineRecorder{}
	}
	rt := New(cfg)

	go func() {
		rt.Init()
		body(rt)
		rt.Exit()
	}()

	select {
	case code := <-h.code:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the runtime to halt")
		return -1
	}
}

func TestInitState(t *testing.T) {
	var current, live int
	var ready []int

	code := runScenario(t, Config{}, func(rt *Runtime) {
		current = rt.Current()
		live = rt.Live()
		ready = rt.Ready()
	})

	require.Equal(t, 0, code)
	require.Equal(t, 0, current)
	require.Equal(t, 1, live)
	require.Empty(t, ready)
}

func TestSpawnDistinctIDsUntilFull(t *testing.T) {
	const capacity = 5
	var ids []int
	var overflow int

	code := runScenario(t, Config{MaxThreads: capacity}, func(rt *Runtime) {
		for i := 0; i < capacity-1; i++ {
			ids = append(ids, rt.Spawn(func(int) {}, i))
		}
		overflow = rt.Spawn(func(int) {}, 99)
	})

	require.Equal(t, 0, code)
	require.Equal(t, -1, overflow)
	require.Len(t, ids, capacity-1)
	seen := make(map[int]bool)
	for _, id := range ids {
		require.Greater(t, id, 0)
		require.Less(t, id, capacity)
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestSpawnDoesNotRun(t *testing.T) {
	ran := false
	var ranBeforeYield bool
	var ready []int

	code := runScenario(t, Config{}, func(rt *Runtime) {
		id := rt.Spawn(func(int) { ran = true }, 0)
		ranBeforeYield = ran
		ready = rt.Ready()
		rt.Yield(id)
	})

	require.Equal(t, 0, code)
	require.False(t, ranBeforeYield)
	require.Equal(t, []int{1}, ready)
	require.True(t, ran)
}

func TestSpawnPassesArgument(t *testing.T) {
	var got []int

	runScenario(t, Config{}, func(rt *Runtime) {
		for _, arg := range []int{7, -3, 42} {
			rt.Spawn(func(arg int) { got = append(got, arg) }, arg)
		}
		rt.Schedule()
	})

	require.Equal(t, []int{7, -3, 42}, got)
}

func TestSpawnNilEntry(t *testing.T) {
	log := &lineRecorder{}
	var id, live int

	runScenario(t, Config{Logger: log}, func(rt *Runtime) {
		id = rt.Spawn(nil, 0)
		live = rt.Live()
	})

	require.Equal(t, -1, id)
	require.Equal(t, 1, live)
	require.Contains(t, log.Lines(), "Spawn: nil entry function")
}

func TestPingPong(t *testing.T) {
	var events []string
	var a, b int

	code := runScenario(t, Config{}, func(rt *Runtime) {
		a = rt.Current()
		b = rt.Spawn(func(int) {
			events = append(events, fmt.Sprintf("B running as %d", rt.Current()))
			prev := rt.Yield(a)
			events = append(events, fmt.Sprintf("B resumed by %d", prev))
		}, 0)

		events = append(events, "A yields")
		prev := rt.Yield(b)
		events = append(events, fmt.Sprintf("A resumed by %d as %d", prev, rt.Current()))
	})

	require.Equal(t, 0, code)
	require.Equal(t, []string{
		"A yields",
		fmt.Sprintf("B running as %d", b),
		fmt.Sprintf("A resumed by %d as %d", b, a),
		fmt.Sprintf("B resumed by %d", a),
	}, events)
}

func TestYieldToSelf(t *testing.T) {
	var prev, current int
	var ready []int

	runScenario(t, Config{}, func(rt *Runtime) {
		rt.Spawn(func(int) {}, 0)
		prev = rt.Yield(0)
		current = rt.Current()
		ready = rt.Ready()
	})

	require.Equal(t, 0, prev)
	require.Equal(t, 0, current)
	require.Equal(t, []int{1}, ready)
}

func TestYieldInvalidTargetLeavesState(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	gomock.InOrder(
		log.EXPECT().WriteLineString("Yield: -1 is not a valid thread ID"),
		log.EXPECT().WriteLineString("Yield: 4 is not a valid thread ID"),
		log.EXPECT().WriteLineString("Yield: thread 3 does not exist"),
	)

	type snapshot struct {
		current int
		live    int
		ready   []int
	}
	var before snapshot
	var after []snapshot
	var results []int

	code := runScenario(t, Config{MaxThreads: 4, Logger: log}, func(rt *Runtime) {
		rt.Spawn(func(int) {}, 0)
		rt.Spawn(func(int) {}, 0)
		before = snapshot{rt.Current(), rt.Live(), rt.Ready()}
		for _, target := range []int{-1, 4, 3} {
			results = append(results, rt.Yield(target))
			after = append(after, snapshot{rt.Current(), rt.Live(), rt.Ready()})
		}
	})

	require.Equal(t, 0, code)
	require.Equal(t, []int{-1, -1, -1}, results)
	require.Equal(t, snapshot{0, 3, []int{1, 2}}, before)
	for _, s := range after {
		require.Equal(t, before, s)
	}
}

func TestScheduleRoundRobin(t *testing.T) {
	var ids, visits []int

	code := runScenario(t, Config{}, func(rt *Runtime) {
		body := func(int) {
			for i := 0; i < 3; i++ {
				visits = append(visits, rt.Current())
				rt.Schedule()
			}
		}
		ids = []int{rt.Spawn(body, 0), rt.Spawn(body, 0), rt.Spawn(body, 0)}
		for i := 0; i < 3; i++ {
			rt.Schedule()
		}
	})

	require.Equal(t, 0, code)
	require.Equal(t, []int{1, 2, 3}, ids)
	require.Equal(t, []int{1, 2, 3, 1, 2, 3, 1, 2, 3}, visits)
}

func TestScheduleAloneIsNoop(t *testing.T) {
	var current int

	code := runScenario(t, Config{}, func(rt *Runtime) {
		rt.Schedule()
		current = rt.Current()
	})

	require.Equal(t, 0, code)
	require.Equal(t, 0, current)
}

func TestExitRunsNextReadyAndFreesSlot(t *testing.T) {
	var events []string
	var reused int

	code := runScenario(t, Config{MaxThreads: 3}, func(rt *Runtime) {
		rt.Spawn(func(int) {
			defer func() { events = append(events, "1 deferred") }()
			events = append(events, "1 exits")
			rt.Exit()
			events = append(events, "1 after exit")
		}, 0)
		rt.Spawn(func(int) {
			events = append(events, fmt.Sprintf("2 runs, live=%d", rt.Live()))
		}, 0)

		rt.Schedule()
		events = append(events, fmt.Sprintf("0 back, live=%d", rt.Live()))

		reused = rt.Spawn(func(arg int) {
			events = append(events, fmt.Sprintf("%d reborn with %d", rt.Current(), arg))
		}, 5)
		rt.Yield(reused)
		events = append(events, fmt.Sprintf("0 done, live=%d", rt.Live()))
	})

	require.Equal(t, 0, code)
	require.Equal(t, 1, reused)
	require.Equal(t, []string{
		"1 exits",
		"1 deferred",
		"2 runs, live=2",
		"0 back, live=1",
		"1 reborn with 5",
		"0 done, live=1",
	}, events)
}

func TestExitLastThreadHalts(t *testing.T) {
	reached := false

	code := runScenario(t, Config{}, func(rt *Runtime) {
		rt.Exit()
		reached = true
	})

	require.Equal(t, 0, code)
	require.False(t, reached)
}

func TestExitMainThreadKeepsOthersRunning(t *testing.T) {
	var events []string
	var spawned int

	code := runScenario(t, Config{MaxThreads: 3}, func(rt *Runtime) {
		rt.Spawn(func(int) {
			events = append(events, fmt.Sprintf("1 sees live=%d ready=%v", rt.Live(), rt.Ready()))
			spawned = rt.Spawn(func(int) { events = append(events, "2 runs") }, 0)
		}, 0)
	})

	require.Equal(t, 0, code)
	require.Equal(t, 2, spawned)
	require.Equal(t, []string{
		"1 sees live=1 ready=[]",
		"2 runs",
	}, events)
}

func TestYieldToBuriedThreadKeepsOrder(t *testing.T) {
	var visits, readyInTarget []int
	var target int

	code := runScenario(t, Config{}, func(rt *Runtime) {
		ids := make([]int, 4)
		for i := range ids {
			ids[i] = rt.Spawn(func(int) { visits = append(visits, rt.Current()) }, 0)
		}
		target = rt.Spawn(func(int) {
			readyInTarget = rt.Ready()
			visits = append(visits, rt.Current())
		}, 0)
		rt.Spawn(func(int) { visits = append(visits, rt.Current()) }, 0)

		// Queue is [1 2 3 4 5 6]; 5 runs now, the rest keep their order.
		rt.Yield(target)
	})

	require.Equal(t, 0, code)
	require.Equal(t, 5, target)
	require.Equal(t, []int{1, 2, 3, 4, 6, 0}, readyInTarget)
	require.Equal(t, []int{5, 1, 2, 3, 4, 6}, visits)
}

func TestUseBeforeInitHalts(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().WriteLineString("Spawn: must call Init first")

	h := newHaltRecorder()
	rt := New(Config{Logger: log, Halter: h})
	go rt.Spawn(func(int) {}, 0)

	select {
	case code := <-h.code:
		require.Equal(t, 1, code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for halt")
	}
}

func TestDoubleInitHalts(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().WriteLineString("Init: should be called only once")

	h := newHaltRecorder()
	rt := New(Config{Logger: log, Halter: h})
	go func() {
		rt.Init()
		rt.Init()
	}()

	select {
	case code := <-h.code:
		require.Equal(t, 1, code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for halt")
	}
}

func TestPanicInThreadHalts(t *testing.T) {
	log := &lineRecorder{}
	var info PanicInfo

	code := runScenario(t, Config{
		Logger:       log,
		PanicHandler: func(pi PanicInfo) { info = pi },
	}, func(rt *Runtime) {
		id := rt.Spawn(func(int) { panic("boom") }, 0)
		rt.Yield(id)
	})

	require.Equal(t, 2, code)
	require.Equal(t, 1, info.ThreadID)
	require.Equal(t, "boom", info.Value)
	require.NotEmpty(t, info.Stack)
	require.Contains(t, log.Lines(), "threads: panic in thread 1: boom")
}

func TestTraceLogsSwitches(t *testing.T) {
	log := &lineRecorder{}

	runScenario(t, Config{Logger: log, Trace: true}, func(rt *Runtime) {
		id := rt.Spawn(func(int) {}, 0)
		rt.Yield(id)
	})

	require.Equal(t, []string{
		"threads: switch 0 -> 1",
		"threads: switch 1 -> 0",
	}, log.Lines())
}

func TestDefaults(t *testing.T) {
	rt := New(Config{})
	require.Equal(t, DefaultMaxThreads, rt.Capacity())
	require.IsType(t, stderrLogger{}, rt.cfg.Logger)
	require.IsType(t, exitHalter{}, rt.cfg.Halter)
}
