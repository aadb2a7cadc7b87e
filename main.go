// main.go - Main entry point for the DuoVox voice engine

/*
DuoVox is a small polyphonic synthesizer voice manager in the spirit of
two-voice hardware monosynth expanders: key events arrive from button
lines (here, the terminal keyboard), a MIDI input port and/or a Lua
script, a fixed pool of oscillator voices is allocated with oldest-first
stealing and restitution, and the result is rendered as stereo float32.

Execution contexts:

  - control loop (this file): polls buttons, drains the event queue,
    calls the allocator - the sole mutator of key/voice state.
  - audio context (oto reader): pulls blocks from the SynthEngine, which
    reads voice bindings through single-word atomics only.
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var (
		voices     int
		buttons    int
		waveName   string
		midiPort   string
		midiOff    bool
		scriptPath string
		noAudio    bool
		volume     float64
		pulseWidth float64
		detune     float64
	)
	flag.IntVar(&voices, "voices", VOICE_COUNT, "rendering voice pool size")
	flag.IntVar(&buttons, "buttons", BUTTON_COUNT, "number of button key lines")
	flag.StringVar(&waveName, "wave", "square", "waveform: square, saw, triangle")
	flag.StringVar(&midiPort, "midi", "", "MIDI input port name substring")
	flag.BoolVar(&midiOff, "no-midi", false, "disable MIDI input")
	flag.StringVar(&scriptPath, "script", "", "Lua event script to play")
	flag.BoolVar(&noAudio, "no-audio", false, "run without an audio device")
	flag.Float64Var(&volume, "volume", 0.8, "volume pot position (0..1)")
	flag.Float64Var(&pulseWidth, "pw", 0.5, "pulse width pot position (0..1)")
	flag.Float64Var(&detune, "detune", 0.0, "detune pot position (0..1)")
	flag.Parse()

	wave, ok := ParseWaveform(waveName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown waveform %q\n", waveName)
		os.Exit(1)
	}

	keys := NewKeyRegistry(buttons)
	pool := NewVoicePool(voices)
	alloc := NewVoiceAllocator(keys, pool)
	pots := NewPotBank(float32(volume), float32(pulseWidth), float32(detune))
	engine := NewSynthEngine(pool, NewControlBank(pots), SAMPLE_RATE, keys.ButtonCount())
	engine.SetWaveform(wave)

	backend := AUDIO_BACKEND_OTO
	if noAudio {
		backend = AUDIO_BACKEND_NONE
	}
	output, err := NewAudioOutput(backend, SAMPLE_RATE, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio init: %v\n", err)
		os.Exit(1)
	}

	events := make(chan KeyEvent, EVENT_QUEUE_SIZE)
	quit := make(chan struct{})
	quitFn := func() {
		select {
		case <-quit:
		default:
			close(quit)
		}
	}

	// Terminal keyboard doubles as the button line bank.
	kbd := NewKeyboardHost(keys.ButtonCount(), quitFn, func(b byte) {
		switch b {
		case '-':
			pots.Adjust(CTRL_VOLUME, -0.05)
		case '=':
			pots.Adjust(CTRL_VOLUME, 0.05)
		case '[':
			pots.Adjust(CTRL_PULSE_WIDTH, -0.05)
		case ']':
			pots.Adjust(CTRL_PULSE_WIDTH, 0.05)
		case ',':
			pots.Adjust(CTRL_DETUNE, -0.05)
		case '.':
			pots.Adjust(CTRL_DETUNE, 0.05)
		}
	})
	scanner := NewButtonScanner(kbd, keys.ButtonCount(), events)
	kbd.Start()
	defer kbd.Stop()

	if !midiOff {
		if stop, err := OpenMidiInput(midiPort, events); err != nil {
			fmt.Fprintf(os.Stderr, "midi: %v (continuing without)\n", err)
		} else {
			defer stop()
			defer CloseMidi()
		}
	}

	if scriptPath != "" {
		player := NewScriptPlayer(func(ev KeyEvent) {
			select {
			case events <- ev:
			case <-quit:
			}
		})
		go func() {
			if err := player.RunFile(scriptPath); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	engine.Start()
	output.Start()
	defer output.Close()
	defer engine.Stop()
	if !output.IsStarted() {
		fmt.Fprintln(os.Stderr, "audio: output did not start")
	}

	fmt.Printf("DuoVox: %d voices, %d buttons, %s wave, %d Hz\n",
		pool.Size(), keys.ButtonCount(), engine.Waveform(), SAMPLE_RATE)
	fmt.Println("keys a..k play, -/= volume, [/] pulse width, ,/. detune, q quits")

	ticker := time.NewTicker(CONTROL_POLL_MS * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-sig:
			return
		case <-ticker.C:
			scanner.Poll()
			drainEvents(events, alloc)
		}
	}
}

// drainEvents applies all queued key events without blocking. Runs on the
// control goroutine, which keeps the allocator single-mutator.
func drainEvents(events <-chan KeyEvent, alloc *VoiceAllocator) {
	for {
		select {
		case ev := <-events:
			if ev.Pressed {
				alloc.OnKeyPressed(ev.Key)
			} else {
				alloc.OnKeyReleased(ev.Key)
			}
		default:
			return
		}
	}
}
