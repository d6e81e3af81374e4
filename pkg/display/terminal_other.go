//go:build !linux

package display

import "os"

// TerminalKeys is only implemented on Linux.
func TerminalKeys(f *os.File) (keys <-chan int, restore func() error, err error) {
	return nil, nil, ErrUnavailable
}
