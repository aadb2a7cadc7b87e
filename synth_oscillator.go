// synth_oscillator.go - PolyBLEP oscillator for the rendering voices

/*
One oscillator per voice: square (with variable pulse width), sawtooth and
triangle. Square and saw use a two-sample polyBLEP correction at each
discontinuity to keep aliasing down at audio rates; triangle is naive,
which is fine given its -12 dB/octave harmonic rolloff. Phase runs 0..1.
*/

package main

import "math"

type Waveform int

const (
	WAVE_SQUARE Waveform = iota
	WAVE_SAW
	WAVE_TRIANGLE
)

func ParseWaveform(s string) (Waveform, bool) {
	switch s {
	case "square":
		return WAVE_SQUARE, true
	case "saw":
		return WAVE_SAW, true
	case "triangle", "tri":
		return WAVE_TRIANGLE, true
	}
	return WAVE_SQUARE, false
}

func (w Waveform) String() string {
	switch w {
	case WAVE_SQUARE:
		return "square"
	case WAVE_SAW:
		return "saw"
	case WAVE_TRIANGLE:
		return "triangle"
	}
	return "invalid"
}

type Oscillator struct {
	sampleRate float32
	phase      float32
	inc        float32
	pw         float32
	wave       Waveform
}

func NewOscillator(sampleRate int) Oscillator {
	return Oscillator{sampleRate: float32(sampleRate), pw: 0.5}
}

func (o *Oscillator) SetWaveform(w Waveform) { o.wave = w }

func (o *Oscillator) SetFreq(hz float32) {
	if hz < 0 {
		hz = 0
	}
	o.inc = hz / o.sampleRate
}

// SetPulseWidth clamps to 5..95% so the square never collapses to DC.
func (o *Oscillator) SetPulseWidth(pw float32) {
	if pw < 0.05 {
		pw = 0.05
	} else if pw > 0.95 {
		pw = 0.95
	}
	o.pw = pw
}

// ResetPhase restarts the waveform; called when a voice is re-gated.
func (o *Oscillator) ResetPhase() { o.phase = 0 }

// polyblep is the standard two-sample residual for a unit step at t=0.
func polyblep(t, dt float32) float32 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// Process advances one sample and returns the output in -1..1.
func (o *Oscillator) Process() float32 {
	t := o.phase
	dt := o.inc
	var s float32

	switch o.wave {
	case WAVE_SQUARE:
		if t < o.pw {
			s = 1
		} else {
			s = -1
		}
		if dt > 0 {
			s += polyblep(t, dt)
			// Falling edge at phase == pw
			ft := t - o.pw
			if ft < 0 {
				ft += 1
			}
			s -= polyblep(ft, dt)
		}
	case WAVE_SAW:
		s = 2*t - 1
		if dt > 0 {
			s -= polyblep(t, dt)
		}
	case WAVE_TRIANGLE:
		s = 2*float32(math.Abs(float64(2*t-1))) - 1
	}

	o.phase += dt
	if o.phase >= 1 {
		o.phase -= 1
	}
	return s
}

// midiNoteFreq converts a MIDI note number to Hz, equal temperament.
func midiNoteFreq(note int) float32 {
	return A4_FREQ * exp2f(float32(note-A4_NOTE)/12)
}

func exp2f(x float32) float32 {
	return float32(math.Exp2(float64(x)))
}
