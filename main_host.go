package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"spindle/app"
	"spindle/hal"
	"spindle/internal/buildinfo"
	"spindle/programs"
)

func main() {
	var (
		configPath string
		headless   bool
		list       bool
		version    bool
		ticks      uint64
		opts       = app.DefaultConfig()
	)
	flag.StringVar(&configPath, "config", "", "Load settings from a TOML file.")
	flag.StringVar(&opts.Demo, "demo", opts.Demo, "Run the named demo program (see -list).")
	flag.StringVar(&opts.Script, "script", "", "Run a scenario script instead of a demo.")
	flag.IntVar(&opts.MaxThreads, "threads", opts.MaxThreads, "Thread table size, including thread 0.")
	flag.BoolVar(&opts.Trace, "trace", false, "Log every context switch.")
	flag.BoolVar(&opts.Console.Enabled, "console", opts.Console.Enabled, "Render output on the framebuffer console.")
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&opts.Console.Hz, "hz", opts.Console.Hz, "Tick rate in headless mode.")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run until halt).")
	flag.BoolVar(&list, "list", false, "List demo programs and script bodies.")
	flag.BoolVar(&version, "version", false, "Print the build version.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.String())
		return
	}
	if list {
		for _, name := range programs.Names() {
			p, _ := programs.Lookup(name)
			fmt.Printf("%-12s %s\n", p.Name, p.Doc)
		}
		fmt.Printf("script bodies: %v\n", programs.BodyNames())
		return
	}

	cfg, err := resolveConfig(configPath, opts)
	if err != nil {
		fail(err)
	}

	newApp := func(h hal.HAL) (func() error, error) {
		sys, err := app.New(h, cfg)
		if err != nil {
			return nil, err
		}
		sys.Start()
		return sys.Step, nil
	}

	if headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{Hz: cfg.Console.Hz, Ticks: ticks})
		if errors.Is(err, context.Canceled) {
			return
		}
	} else {
		err = hal.RunWindow(newApp)
	}
	exit(err)
}

// resolveConfig layers explicitly set flags over the config file.
func resolveConfig(path string, flags app.Config) (app.Config, error) {
	if path == "" {
		if flags.Script != "" {
			flags.Demo = ""
		}
		return flags, nil
	}

	cfg, err := app.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "demo":
			cfg.Demo, cfg.Script = flags.Demo, ""
		case "script":
			cfg.Script, cfg.Demo = flags.Script, ""
		case "threads":
			cfg.MaxThreads = flags.MaxThreads
		case "trace":
			cfg.Trace = flags.Trace
		case "console":
			cfg.Console.Enabled = flags.Console.Enabled
		case "hz":
			cfg.Console.Hz = flags.Console.Hz
		}
	})
	return cfg, nil
}

func exit(err error) {
	var he *hal.HaltError
	if errors.As(err, &he) {
		os.Exit(he.Code)
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
