// voice_pool.go - Fixed pool of rendering voices with atomic binding words

/*
Each voice slot publishes its binding as a single packed 64-bit word:

	bits 0-7   key id
	bit  8     key domain (0 = button, 1 = midi)
	bit  9     active flag
	bits 32-63 generation counter

The control context is the only writer; the audio context reads the word
once per block and can never observe a torn binding. The generation field
increments on every bind and retrigger so the renderer can detect that a
slot was re-gated even when the bound key did not change (re-press of the
same key) or changed within one block (steal plus rebind).
*/

package main

import "sync/atomic"

const (
	bindingIDMask  = 0xFF
	bindingDomain  = 1 << 8
	bindingActive  = 1 << 9
	bindingGenUnit = 1 << 32
)

// VoiceBinding is the renderer-visible state of one voice slot.
type VoiceBinding struct {
	Active bool
	Key    Key
}

func packBinding(b VoiceBinding) uint64 {
	w := uint64(b.Key.ID) & bindingIDMask
	if b.Key.Domain == KEY_DOMAIN_MIDI {
		w |= bindingDomain
	}
	if b.Active {
		w |= bindingActive
	}
	return w
}

func unpackBinding(w uint64) VoiceBinding {
	b := VoiceBinding{Active: w&bindingActive != 0}
	b.Key.ID = uint8(w & bindingIDMask)
	if w&bindingDomain != 0 {
		b.Key.Domain = KEY_DOMAIN_MIDI
	}
	return b
}

// VoicePool is the fixed array of voice slots. Mutating methods are
// control-context only; Binding is safe from any context.
type VoicePool struct {
	words []atomic.Uint64
}

func NewVoicePool(voices int) *VoicePool {
	if voices < 1 {
		voices = 1
	}
	return &VoicePool{words: make([]atomic.Uint64, voices)}
}

func (p *VoicePool) Size() int { return len(p.words) }

// Binding returns the current binding of voice i and its generation.
func (p *VoicePool) Binding(i int) (VoiceBinding, uint32) {
	w := p.words[i].Load()
	return unpackBinding(w), uint32(w >> 32)
}

// boundKey is the mutator-side read used by the allocator.
func (p *VoicePool) boundKey(i int) (Key, bool) {
	b := unpackBinding(p.words[i].Load())
	return b.Key, b.Active
}

// idleVoice returns the lowest-index idle slot, or -1.
func (p *VoicePool) idleVoice() int {
	for i := range p.words {
		if p.words[i].Load()&bindingActive == 0 {
			return i
		}
	}
	return -1
}

// bind publishes key k on voice i with a fresh generation.
func (p *VoicePool) bind(i int, k Key) {
	gen := p.words[i].Load() &^ uint64(bindingGenUnit-1)
	p.words[i].Store(gen + bindingGenUnit + packBinding(VoiceBinding{Active: true, Key: k}))
}

// retrigger re-gates voice i without changing its binding.
func (p *VoicePool) retrigger(i int) {
	p.words[i].Store(p.words[i].Load() + bindingGenUnit)
}

// release marks voice i idle. The generation advances so a release
// followed by a rebind of the same key within one block still re-gates.
func (p *VoicePool) release(i int) {
	gen := p.words[i].Load() &^ uint64(bindingGenUnit-1)
	p.words[i].Store(gen + bindingGenUnit)
}

// ActiveCount counts currently sounding voices.
func (p *VoicePool) ActiveCount() int {
	n := 0
	for i := range p.words {
		if p.words[i].Load()&bindingActive != 0 {
			n++
		}
	}
	return n
}
