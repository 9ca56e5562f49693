// Package script runs line-oriented thread scenarios on the initializing
// thread of a runtime.
//
//	# spawn two counters and let them run
//	spawn count 2
//	spawn count 2
//	expect live 3
//	schedule 4
//	exit
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/shlex"

	"spindle/programs"
)

// Command is one parsed script line.
type Command struct {
	Line int
	Op   string
	Args []string
}

func (c Command) String() string {
	return fmt.Sprintf("%d: %s %v", c.Line, c.Op, c.Args)
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrArgs           = errors.New("wrong number of arguments")
)

// ParseError locates a problem in a script.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

type opSpec struct {
	minArgs, maxArgs int
	check            func(args []string) error
}

var ops = map[string]opSpec{
	"spawn":    {2, 2, checkSpawn},
	"yield":    {1, 1, checkInts},
	"schedule": {0, 1, checkInts},
	"current":  {0, 0, nil},
	"live":     {0, 0, nil},
	"ready":    {0, 0, nil},
	"exit":     {0, 0, nil},
	"echo":     {0, -1, nil},
	"expect":   {2, 2, checkExpect},
}

// Parse reads a script. Blank lines and # comments are skipped.
func Parse(r io.Reader) ([]Command, error) {
	var cmds []Command
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields, err := shlex.Split(sc.Text())
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		if len(fields) == 0 {
			continue
		}
		cmd := Command{Line: line, Op: fields[0], Args: fields[1:]}
		if err := validate(cmd); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cmds, nil
}

func validate(cmd Command) error {
	op, ok := ops[cmd.Op]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Op)
	}
	n := len(cmd.Args)
	if n < op.minArgs || (op.maxArgs >= 0 && n > op.maxArgs) {
		return fmt.Errorf("%s: %w", cmd.Op, ErrArgs)
	}
	if op.check != nil {
		if err := op.check(cmd.Args); err != nil {
			return fmt.Errorf("%s: %w", cmd.Op, err)
		}
	}
	return nil
}

func checkInts(args []string) error {
	for _, a := range args {
		if _, err := strconv.Atoi(a); err != nil {
			return err
		}
	}
	return nil
}

func checkSpawn(args []string) error {
	if !knownBody(args[0]) {
		return fmt.Errorf("unknown body %q", args[0])
	}
	return checkInts(args[1:])
}

func checkExpect(args []string) error {
	if _, ok := results[args[0]]; !ok {
		return fmt.Errorf("%q has no result", args[0])
	}
	return checkInts(args[1:])
}

func knownBody(name string) bool {
	for _, b := range programs.BodyNames() {
		if b == name {
			return true
		}
	}
	return false
}
