//go:build !windows

// input_keyboard.go - Raw-mode terminal keyboard presented as button lines

/*
Lets the engine be played without hardware: the home row maps onto the
button lines and the KeyboardHost implements ButtonReader, so the normal
button scanner/debounce path is exercised unchanged.

Terminals deliver key presses but no key releases. Each press (and each
auto-repeat) refreshes a per-line hold deadline; a line reads asserted
until its deadline lapses, which synthesizes the release edge. Holding a
key therefore sustains the note for as long as the terminal keeps
repeating it.
*/

package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/term"
)

// Home-row key for each button line, in line order.
var keyboardRow = []byte{'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';'}

// KeyboardHost reads raw stdin and exposes the mapped keys as active
// button lines. Only instantiated in main.go for interactive use - never
// in tests.
type KeyboardHost struct {
	lines     int
	deadlines []atomic.Int64 // UnixNano per line; asserted while in the future
	onQuit    func()
	onControl func(byte)

	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func NewKeyboardHost(lines int, onQuit func(), onControl func(byte)) *KeyboardHost {
	if lines > len(keyboardRow) {
		lines = len(keyboardRow)
	}
	return &KeyboardHost{
		lines:     lines,
		deadlines: make([]atomic.Int64, lines),
		onQuit:    onQuit,
		onControl: onControl,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ReadButtons implements ButtonReader: bit i set while line i is held.
func (h *KeyboardHost) ReadButtons() uint32 {
	now := time.Now().UnixNano()
	var mask uint32
	for i := range h.deadlines {
		if h.deadlines[i].Load() > now {
			mask |= 1 << i
		}
	}
	return mask
}

// Start puts stdin into raw mode and begins reading in a goroutine.
// Call Stop() to restore the terminal.
func (h *KeyboardHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyboard: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "keyboard: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				h.routeKey(buf[0])
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (h *KeyboardHost) routeKey(b byte) {
	if b == 'q' || b == 0x03 { // q or Ctrl-C
		if h.onQuit != nil {
			h.onQuit()
		}
		return
	}
	for i := 0; i < h.lines; i++ {
		if keyboardRow[i] == b {
			hold := time.Duration(KEY_HOLD_MS) * time.Millisecond
			h.deadlines[i].Store(time.Now().Add(hold).UnixNano())
			return
		}
	}
	if h.onControl != nil {
		h.onControl(b)
	}
}

// Stop terminates the reader goroutine and restores the terminal.
func (h *KeyboardHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
