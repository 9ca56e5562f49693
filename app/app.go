// Package app assembles the thread runtime, its output sinks and the
// selected demo or script on top of a HAL.
package app

import (
	"fmt"
	"os"
	"sync"

	"github.com/samber/do"

	"spindle/console"
	"spindle/hal"
	"spindle/programs"
	"spindle/script"
	"spindle/threads"
)

// System is one assembled runtime ready to start.
type System struct {
	cfg Config
	h   hal.HAL
	rt  *threads.Runtime
	out hal.Logger
	con *console.Console

	cmds []script.Command

	startOnce sync.Once
}

// New wires the system for cfg. The runtime is not initialized until Start.
func New(h hal.HAL, cfg Config) (*System, error) {
	if h == nil {
		return nil, fmt.Errorf("app: nil HAL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	i := do.New()
	do.ProvideValue(i, h)
	do.ProvideValue(i, cfg)
	do.Provide(i, provideConsole)
	do.Provide(i, provideOutput)
	do.Provide(i, provideRuntime)
	do.Provide(i, provideScript)

	con, err := do.Invoke[*console.Console](i)
	if err != nil {
		return nil, err
	}
	cmds, err := do.Invoke[[]script.Command](i)
	if err != nil {
		return nil, err
	}
	return &System{
		cfg:  cfg,
		h:    h,
		rt:   do.MustInvoke[*threads.Runtime](i),
		out:  do.MustInvoke[hal.Logger](i),
		con:  con,
		cmds: cmds,
	}, nil
}

// provideConsole returns nil when the console is disabled.
func provideConsole(i *do.Injector) (*console.Console, error) {
	cfg := do.MustInvoke[Config](i)
	if !cfg.Console.Enabled {
		return nil, nil
	}
	h := do.MustInvoke[hal.HAL](i)
	return console.New(h.Display(), h.Logger())
}

// provideOutput picks the sink thread programs and the runtime write to.
func provideOutput(i *do.Injector) (hal.Logger, error) {
	con, err := do.Invoke[*console.Console](i)
	if err != nil {
		return nil, err
	}
	if con != nil {
		return con, nil
	}
	return do.MustInvoke[hal.HAL](i).Logger(), nil
}

func provideRuntime(i *do.Injector) (*threads.Runtime, error) {
	cfg := do.MustInvoke[Config](i)
	h := do.MustInvoke[hal.HAL](i)
	out, err := do.Invoke[hal.Logger](i)
	if err != nil {
		return nil, err
	}
	con, err := do.Invoke[*console.Console](i)
	if err != nil {
		return nil, err
	}
	return threads.New(threads.Config{
		MaxThreads:   cfg.MaxThreads,
		Logger:       out,
		Halter:       h.Halter(),
		Trace:        cfg.Trace,
		PanicHandler: panicScreen(h.Display(), con),
	}), nil
}

func provideScript(i *do.Injector) ([]script.Command, error) {
	cfg := do.MustInvoke[Config](i)
	if cfg.Script == "" {
		return nil, nil
	}
	f, err := os.Open(cfg.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	cmds, err := script.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Script, err)
	}
	return cmds, nil
}

// Runtime returns the system's thread runtime.
func (s *System) Runtime() *threads.Runtime { return s.rt }

// Start runs the demo or script on a new goroutine, which becomes thread 0.
// When the program finishes, thread 0 exits and the remaining threads run
// until the last one halts the process. A failing script halts with status 1.
func (s *System) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *System) run() {
	s.rt.Init()
	env := programs.Env{RT: s.rt, Out: s.out}
	if t := s.h.Time(); t != nil {
		env.Ticks = t.Ticks()
	}

	if s.cfg.Demo != "" {
		p, _ := programs.Lookup(s.cfg.Demo)
		s.out.WriteLineString("demo: " + p.Name + ": " + p.Doc)
		p.Run(env)
	} else if err := script.Run(env, s.cmds); err != nil {
		s.out.WriteLineString("script: " + err.Error())
		s.h.Halter().Halt(1)
		return
	}
	s.rt.Exit()
}

// Step is called once per host tick and presents console output.
func (s *System) Step() error {
	if s.con == nil {
		return nil
	}
	return s.con.Flush()
}
