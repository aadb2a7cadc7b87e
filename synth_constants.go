// synth_constants.go - Shared constants for the DuoVox voice engine

package main

const (
	SAMPLE_RATE = 48000 // Output sample rate in Hz
	BLOCK_SIZE  = 128   // Frames per render block
)

const (
	VOICE_COUNT  = 2 // Default rendering voice pool size
	BUTTON_COUNT = 8 // Default number of physical key lines
	MAX_BUTTONS  = 128
	MIDI_KEYS    = 128
)

const (
	A4_FREQ = 440.0
	A4_NOTE = 69

	// Buttons map onto a major scale starting here (middle C).
	BUTTON_BASE_NOTE = 60
)

const (
	CTRL_VOLUME = iota
	CTRL_PULSE_WIDTH
	CTRL_DETUNE
	CTRL_COUNT
)

const (
	CONTROL_POLL_MS  = 5  // Control loop cadence (buttons, event drain)
	DEBOUNCE_POLLS   = 3  // Consecutive identical reads to accept an edge
	EVENT_QUEUE_SIZE = 64 // Bounded press/release queue into the allocator
)

const (
	GATE_RAMP_MS     = 2    // Attack/release ramp to avoid gate clicks
	CONTROL_SMOOTH   = 0.05 // One-pole coefficient for pot smoothing
	DETUNE_MAX_CENTS = 25.0 // Full detune pot deflection, per voice
)

const (
	MAX_SAMPLE = 1.0
	MIN_SAMPLE = -1.0
)

// Terminal keyboard keys have no release edge; a pressed key is held this
// long past its last repeat before the line reads released.
const KEY_HOLD_MS = 150
