//go:build !tinygo

package threads

import "runtime/debug"

func captureStack() []byte {
	return debug.Stack()
}
