// voice_key.go - Key identity and per-key state for the voice allocator

/*
A key is a logical note-on/off source: either one of the physical button
lines or one of the 128 MIDI note numbers. The full key space is fixed at
construction and every key has a persistent state slot, so lookups are
plain array indexing and no allocation happens on the event path.

Per-key state tracks whether the key is held, the acquisition stamp issued
by the allocator's ordering counter, and which voice (if any) currently
sounds it. A held key with no owner is "waiting" - it was dispossessed by
voice stealing and is first in line when a voice frees up.
*/

package main

type KeyDomain uint8

const (
	KEY_DOMAIN_BUTTON KeyDomain = iota
	KEY_DOMAIN_MIDI
)

func (d KeyDomain) String() string {
	switch d {
	case KEY_DOMAIN_BUTTON:
		return "button"
	case KEY_DOMAIN_MIDI:
		return "midi"
	}
	return "invalid"
}

// Key identifies a note source across both input domains.
type Key struct {
	Domain KeyDomain
	ID     uint8
}

func ButtonKey(id int) Key { return Key{KEY_DOMAIN_BUTTON, uint8(id)} }
func MidiKey(note int) Key { return Key{KEY_DOMAIN_MIDI, uint8(note)} }

// keyState lives in the registry's fixed tables. stamp is only meaningful
// while held; owner is the voice index sounding this key, or -1.
type keyState struct {
	held  bool
	stamp uint64
	owner int
}

// KeyRegistry holds one state slot per possible key. Only the allocator
// mutates it, and only from the control context.
type KeyRegistry struct {
	buttons []keyState
	midi    [MIDI_KEYS]keyState
}

func NewKeyRegistry(buttonCount int) *KeyRegistry {
	if buttonCount < 0 {
		buttonCount = 0
	}
	if buttonCount > MAX_BUTTONS {
		buttonCount = MAX_BUTTONS
	}
	r := &KeyRegistry{buttons: make([]keyState, buttonCount)}
	for i := range r.buttons {
		r.buttons[i].owner = -1
	}
	for i := range r.midi {
		r.midi[i].owner = -1
	}
	return r
}

func (r *KeyRegistry) ButtonCount() int { return len(r.buttons) }

// state returns the slot for k, or nil if k is outside the key space.
// ID is uint8 so the MIDI range check is only needed against MIDI_KEYS
// when the type is ever widened; buttons check against the configured
// line count.
func (r *KeyRegistry) state(k Key) *keyState {
	switch k.Domain {
	case KEY_DOMAIN_BUTTON:
		if int(k.ID) >= len(r.buttons) {
			return nil
		}
		return &r.buttons[k.ID]
	case KEY_DOMAIN_MIDI:
		if int(k.ID) >= MIDI_KEYS {
			return nil
		}
		return &r.midi[k.ID]
	}
	return nil
}

// Held reports whether k is currently held. Invalid keys read as released.
func (r *KeyRegistry) Held(k Key) bool {
	st := r.state(k)
	return st != nil && st.held
}

// HeldCount counts currently held keys across both domains.
func (r *KeyRegistry) HeldCount() int {
	n := 0
	for i := range r.buttons {
		if r.buttons[i].held {
			n++
		}
	}
	for i := range r.midi {
		if r.midi[i].held {
			n++
		}
	}
	return n
}

// oldestWaiting finds the held-but-voiceless key with the smallest
// acquisition stamp. Stolen keys keep their original stamp, so the key
// dispossessed longest ago wins regardless of domain.
func (r *KeyRegistry) oldestWaiting() (Key, bool) {
	var best Key
	var bestStamp uint64
	found := false
	consider := func(k Key, st *keyState) {
		if !st.held || st.owner >= 0 {
			return
		}
		if !found || st.stamp < bestStamp {
			best, bestStamp, found = k, st.stamp, true
		}
	}
	for i := range r.buttons {
		consider(ButtonKey(i), &r.buttons[i])
	}
	for i := range r.midi {
		consider(MidiKey(i), &r.midi[i])
	}
	return best, found
}
