//go:build linux

package display

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// keyPollMS bounds how long the key reader sleeps before rechecking for
// restore.
const keyPollMS = 50

// TerminalKeys switches the terminal on f to non-canonical, no-echo mode
// and delivers each byte read from it as a key code. restore stops the
// reader, closes keys and puts the terminal back; call it before exiting.
// The channel is also closed when f reaches end of file.
func TerminalKeys(f *os.File) (keys <-chan int, restore func() error, err error) {
	fd := int(f.Fd())

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s is not a terminal: %v", ErrUnavailable, f.Name(), err)
	}

	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to set terminal mode: %w", err)
	}

	ch := make(chan int, 16)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go readKeys(fd, ch, done, stopped)

	var once sync.Once
	restore = func() error {
		once.Do(func() {
			close(done)
			<-stopped
		})
		return unix.IoctlSetTermios(fd, unix.TCSETS, saved)
	}
	return ch, restore, nil
}

// readKeys polls fd so it notices done within keyPollMS instead of
// blocking in read forever.
func readKeys(fd int, ch chan<- int, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer close(ch)

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	buf := make([]byte, 1)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := unix.Poll(fds, keyPollMS)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			// POLLHUP, POLLERR or POLLNVAL without data.
			return
		}

		n, err = unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil || n == 0 {
			return
		}
		select {
		case ch <- int(buf[0]):
		default:
		}
	}
}
