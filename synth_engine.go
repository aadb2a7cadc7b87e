// synth_engine.go - Block renderer: voice bindings to stereo output

/*
The engine is the audio-context consumer of the voice pool. Once per
block it samples the control pots, snapshots each voice's packed binding
word and renders: an active voice gets its bound key's pitch (fixed note
table for buttons, equal temperament for MIDI), the shared waveform and
pulse width, a per-voice detune offset, and a short linear gate ramp in
and out so binding changes never click. Idle voices ramp to silence and
then cost nothing.

The engine never mutates allocator state. Everything it reads crosses
the context boundary through single-word atomics, so it cannot observe a
torn binding and never takes a lock on the render path.
*/

package main

import "sync/atomic"

type renderVoice struct {
	osc    Oscillator
	gen    uint32  // Last seen binding generation
	freq   float32 // Base frequency of the bound key
	level  float32 // Current gate ramp level
	target float32 // 1 while bound, 0 while idle
	primed bool
}

type SynthEngine struct {
	pool     *VoicePool
	controls *ControlBank
	voices   []renderVoice

	sampleRate int
	rampStep   float32
	mixLevel   float32 // 1/V so a full pool cannot clip
	wave       atomic.Int32
	enabled    atomic.Bool

	buttonNotes []int
}

func NewSynthEngine(pool *VoicePool, controls *ControlBank, sampleRate, buttonCount int) *SynthEngine {
	e := &SynthEngine{
		pool:        pool,
		controls:    controls,
		voices:      make([]renderVoice, pool.Size()),
		sampleRate:  sampleRate,
		rampStep:    1000.0 / (GATE_RAMP_MS * float32(sampleRate)),
		mixLevel:    1.0 / float32(pool.Size()),
		buttonNotes: buttonNoteTable(buttonCount),
	}
	for i := range e.voices {
		e.voices[i].osc = NewOscillator(sampleRate)
	}
	return e
}

// buttonNoteTable lays the button lines out on a major scale from
// BUTTON_BASE_NOTE, one octave per seven lines.
func buttonNoteTable(count int) []int {
	scale := [7]int{0, 2, 4, 5, 7, 9, 11}
	notes := make([]int, count)
	for i := range notes {
		notes[i] = BUTTON_BASE_NOTE + 12*(i/7) + scale[i%7]
	}
	return notes
}

func (e *SynthEngine) SetWaveform(w Waveform) { e.wave.Store(int32(w)) }
func (e *SynthEngine) Waveform() Waveform     { return Waveform(e.wave.Load()) }

func (e *SynthEngine) Start() { e.enabled.Store(true) }
func (e *SynthEngine) Stop()  { e.enabled.Store(false) }

// keyFreq maps a bound key to its sounding frequency.
func (e *SynthEngine) keyFreq(k Key) float32 {
	switch k.Domain {
	case KEY_DOMAIN_BUTTON:
		if int(k.ID) < len(e.buttonNotes) {
			return midiNoteFreq(e.buttonNotes[k.ID])
		}
		return 0
	case KEY_DOMAIN_MIDI:
		return midiNoteFreq(int(k.ID))
	}
	return 0
}

// detuneRatio spreads voices symmetrically around the played pitch:
// voice 0 stays put, odd voices go sharp, even voices flat, each step
// scaled by the detune pot (full deflection = DETUNE_MAX_CENTS).
func detuneRatio(voice int, amount float32) float32 {
	if voice == 0 || amount == 0 {
		return 1
	}
	step := (voice + 1) / 2
	cents := amount * DETUNE_MAX_CENTS * float32(step)
	if voice%2 == 0 {
		cents = -cents
	}
	// 2^(cents/1200) via the small-interval approximation is not good
	// enough across 25 cents; use the exact ratio.
	return exp2f(cents / 1200)
}

// RenderBlock fills out with interleaved stereo float32 frames, both
// channels identical. len(out) must be even.
func (e *SynthEngine) RenderBlock(out []float32) {
	frames := len(out) / 2
	if !e.enabled.Load() {
		clearSamples(out)
		return
	}

	e.controls.Sample()
	volume := e.controls.Value(CTRL_VOLUME)
	pw := 0.05 + 0.9*e.controls.Value(CTRL_PULSE_WIDTH)
	detune := e.controls.Value(CTRL_DETUNE)
	wave := e.Waveform()

	for i := range e.voices {
		rv := &e.voices[i]
		b, gen := e.pool.Binding(i)
		if gen != rv.gen {
			rv.gen = gen
			if b.Active {
				// New or re-gated binding: restart the ramp from silence
				// so steals do not click.
				rv.osc.ResetPhase()
				rv.level = 0
			}
		}
		if b.Active {
			// Retuned every block: the pitch is fixed by the key, but the
			// detune pot is live.
			rv.freq = e.keyFreq(b.Key) * detuneRatio(i, detune)
			rv.target = 1
		} else {
			rv.target = 0
		}
		rv.osc.SetWaveform(wave)
		rv.osc.SetPulseWidth(pw)
		rv.osc.SetFreq(rv.freq)
		rv.primed = b.Active || rv.level > 0
	}

	for f := 0; f < frames; f++ {
		var mix float32
		for i := range e.voices {
			rv := &e.voices[i]
			if !rv.primed {
				continue
			}
			if rv.level < rv.target {
				rv.level += e.rampStep
				if rv.level > rv.target {
					rv.level = rv.target
				}
			} else if rv.level > rv.target {
				rv.level -= e.rampStep
				if rv.level < rv.target {
					rv.level = rv.target
					rv.primed = rv.target > 0
				}
			}
			mix += rv.osc.Process() * rv.level
		}
		s := mix * e.mixLevel * volume
		if s > MAX_SAMPLE {
			s = MAX_SAMPLE
		} else if s < MIN_SAMPLE {
			s = MIN_SAMPLE
		}
		out[2*f] = s
		out[2*f+1] = s
	}
}

func clearSamples(out []float32) {
	for i := range out {
		out[i] = 0
	}
}
