// control_pots.go - Sampled control parameters (volume, pulse width, detune)

/*
Control parameters mirror the original hardware's pots: a small fixed set
of analog values sampled once per audio block and fed straight to the
renderer. They never influence allocation. A one-pole smoother removes
pot scratch and zipper noise, matching what an ADC front end would do.
*/

package main

import (
	"math"
	"sync/atomic"
)

// ControlSource supplies raw control values in 0..1. Implementations must
// not block: Read is called from the audio context.
type ControlSource interface {
	ReadControl(ctrl int) float32
}

// PotBank is a software stand-in for the ADC pots. Values are stored as
// atomic float bits so any goroutine (flags at startup, the keyboard
// host's control keys) can turn a pot while the audio context reads it.
type PotBank struct {
	vals [CTRL_COUNT]atomic.Uint32
}

func NewPotBank(volume, pulseWidth, detune float32) *PotBank {
	b := &PotBank{}
	b.Set(CTRL_VOLUME, volume)
	b.Set(CTRL_PULSE_WIDTH, pulseWidth)
	b.Set(CTRL_DETUNE, detune)
	return b
}

func (b *PotBank) Set(ctrl int, v float32) {
	if ctrl < 0 || ctrl >= CTRL_COUNT {
		return
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	b.vals[ctrl].Store(math.Float32bits(v))
}

// Adjust nudges a pot by delta, clamped to 0..1.
func (b *PotBank) Adjust(ctrl int, delta float32) {
	if ctrl < 0 || ctrl >= CTRL_COUNT {
		return
	}
	b.Set(ctrl, b.ReadControl(ctrl)+delta)
}

func (b *PotBank) ReadControl(ctrl int) float32 {
	if ctrl < 0 || ctrl >= CTRL_COUNT {
		return 0
	}
	return math.Float32frombits(b.vals[ctrl].Load())
}

// ControlBank smooths a ControlSource. Sample is called once per audio
// block by the renderer; Value returns the smoothed level for this block.
type ControlBank struct {
	source ControlSource
	smooth [CTRL_COUNT]float32
	primed bool
}

func NewControlBank(source ControlSource) *ControlBank {
	return &ControlBank{source: source}
}

func (b *ControlBank) Sample() {
	if !b.primed {
		// First block: jump straight to the pot positions.
		for i := range b.smooth {
			b.smooth[i] = b.source.ReadControl(i)
		}
		b.primed = true
		return
	}
	for i := range b.smooth {
		b.smooth[i] += CONTROL_SMOOTH * (b.source.ReadControl(i) - b.smooth[i])
	}
}

func (b *ControlBank) Value(ctrl int) float32 {
	if ctrl < 0 || ctrl >= CTRL_COUNT {
		return 0
	}
	return b.smooth[ctrl]
}
