//go:build windows

// input_keyboard_windows.go - Stub keyboard host for Windows builds

package main

// Raw-mode stdin polling is not wired up on Windows; the keyboard source
// reads as all lines released. MIDI and scripted input remain available.
type KeyboardHost struct{}

func NewKeyboardHost(lines int, onQuit func(), onControl func(byte)) *KeyboardHost {
	return &KeyboardHost{}
}

func (h *KeyboardHost) ReadButtons() uint32 { return 0 }
func (h *KeyboardHost) Start()              {}
func (h *KeyboardHost) Stop()               {}
