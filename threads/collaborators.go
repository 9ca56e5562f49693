//go:generate mockgen -package $GOPACKAGE -source $GOFILE -destination collaborators_mock.go

package threads

import (
	"fmt"
	"os"
)

// Logger receives diagnostic lines from the runtime.
type Logger interface {
	WriteLineString(s string)
}

// Halter terminates the process. Halt must not return.
type Halter interface {
	Halt(code int)
}

type stderrLogger struct{}

func (stderrLogger) WriteLineString(s string) {
	fmt.Fprintln(os.Stderr, s)
}

type exitHalter struct{}

func (exitHalter) Halt(code int) {
	os.Exit(code)
}
