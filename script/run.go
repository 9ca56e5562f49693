package script

import (
	"fmt"
	"strconv"
	"strings"

	"spindle/programs"
)

// results lists the commands whose value expect can check.
var results = map[string]bool{
	"spawn":    true,
	"yield":    true,
	"schedule": true,
	"current":  true,
	"live":     true,
}

// ExpectError reports a failed expect line.
type ExpectError struct {
	Line      int
	Name      string
	Got, Want int
	Missing   bool
}

func (e *ExpectError) Error() string {
	if e.Missing {
		return fmt.Sprintf("line %d: expect %s: no %s has run yet", e.Line, e.Name, e.Name)
	}
	return fmt.Sprintf("line %d: expect %s: got %d, want %d", e.Line, e.Name, e.Got, e.Want)
}

// Run executes cmds on the calling thread, which must be the runtime's
// running thread. It stops at the first failed expect. An exit line ends the
// calling thread and Run does not return.
func Run(env programs.Env, cmds []Command) error {
	last := map[string]int{}
	for _, cmd := range cmds {
		switch cmd.Op {
		case "spawn":
			body, _ := programs.Body(cmd.Args[0], env)
			arg := atoi(cmd.Args[1])
			id := env.RT.Spawn(body, arg)
			last["spawn"] = id
			printf(env, "spawn %s %d -> %d", cmd.Args[0], arg, id)
		case "yield":
			target := atoi(cmd.Args[0])
			last["yield"] = env.RT.Yield(target)
			printf(env, "yield %d -> back from %d", target, last["yield"])
		case "schedule":
			n := 1
			if len(cmd.Args) > 0 {
				n = atoi(cmd.Args[0])
			}
			for i := 0; i < n; i++ {
				env.RT.Schedule()
			}
			last["schedule"] = env.RT.Current()
		case "current":
			last["current"] = env.RT.Current()
			printf(env, "current %d", last["current"])
		case "live":
			last["live"] = env.RT.Live()
			printf(env, "live %d", last["live"])
		case "ready":
			printf(env, "ready %v", env.RT.Ready())
		case "exit":
			env.RT.Exit()
		case "echo":
			env.Out.WriteLineString(strings.Join(cmd.Args, " "))
		case "expect":
			name, want := cmd.Args[0], atoi(cmd.Args[1])
			got, ok := last[name]
			if !ok {
				return &ExpectError{Line: cmd.Line, Name: name, Missing: true}
			}
			if got != want {
				return &ExpectError{Line: cmd.Line, Name: name, Got: got, Want: want}
			}
		default:
			return &ParseError{Line: cmd.Line, Err: fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Op)}
		}
	}
	return nil
}

func printf(env programs.Env, format string, args ...any) {
	env.Out.WriteLineString(fmt.Sprintf(format, args...))
}

// atoi is only used on arguments Parse has already checked.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
