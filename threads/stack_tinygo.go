//go:build tinygo

package threads

func captureStack() []byte {
	return nil
}
