// voice_allocator_test.go - Allocation, stealing and restitution behavior

package main

import (
	"math/rand"
	"testing"
)

func newTestAllocator(buttons, voices int) (*VoiceAllocator, *KeyRegistry, *VoicePool) {
	keys := NewKeyRegistry(buttons)
	pool := NewVoicePool(voices)
	return NewVoiceAllocator(keys, pool), keys, pool
}

// checkBindingSymmetry asserts the core invariant: a voice is active iff
// its bound key's owner is that voice, and no key is bound twice.
func checkBindingSymmetry(t *testing.T, keys *KeyRegistry, pool *VoicePool) {
	t.Helper()
	seen := map[Key]int{}
	for i := 0; i < pool.Size(); i++ {
		b, _ := pool.Binding(i)
		if !b.Active {
			continue
		}
		if prev, dup := seen[b.Key]; dup {
			t.Fatalf("key %v bound by voices %d and %d", b.Key, prev, i)
		}
		seen[b.Key] = i
		st := keys.state(b.Key)
		if st == nil {
			t.Fatalf("voice %d bound to invalid key %v", i, b.Key)
		}
		if st.owner != i {
			t.Fatalf("voice %d bound to %v but key owner is %d", i, b.Key, st.owner)
		}
		if !st.held {
			t.Fatalf("voice %d bound to released key %v", i, b.Key)
		}
	}
	// Reverse direction: every owning key's voice must bind it.
	for id := 0; id < keys.ButtonCount(); id++ {
		checkOwnerConsistent(t, keys, pool, ButtonKey(id))
	}
	for n := 0; n < MIDI_KEYS; n++ {
		checkOwnerConsistent(t, keys, pool, MidiKey(n))
	}
}

func checkOwnerConsistent(t *testing.T, keys *KeyRegistry, pool *VoicePool, k Key) {
	t.Helper()
	st := keys.state(k)
	if st.owner < 0 {
		return
	}
	b, _ := pool.Binding(st.owner)
	if !b.Active || b.Key != k {
		t.Fatalf("key %v claims voice %d, which is bound to %+v", k, st.owner, b)
	}
}

func boundVoice(t *testing.T, pool *VoicePool, k Key) int {
	t.Helper()
	for i := 0; i < pool.Size(); i++ {
		if b, _ := pool.Binding(i); b.Active && b.Key == k {
			return i
		}
	}
	return -1
}

func TestAllocator_PressBindsIdleVoice(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)

	alloc.OnKeyPressed(ButtonKey(3))
	if got := boundVoice(t, pool, ButtonKey(3)); got != 0 {
		t.Fatalf("first press should take voice 0, got %d", got)
	}
	alloc.OnKeyPressed(MidiKey(60))
	if got := boundVoice(t, pool, MidiKey(60)); got != 1 {
		t.Fatalf("second press should take voice 1, got %d", got)
	}
	checkBindingSymmetry(t, keys, pool)
}

// The concrete scenario from the design: Button0, Button1, then Midi64
// steals the oldest (Button0); releasing Midi64 restores Button0.
func TestAllocator_StealAndRestitutionScenario(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)

	alloc.OnKeyPressed(ButtonKey(0))
	alloc.OnKeyPressed(ButtonKey(1))
	alloc.OnKeyPressed(MidiKey(64))
	checkBindingSymmetry(t, keys, pool)

	if got := boundVoice(t, pool, MidiKey(64)); got != 0 {
		t.Fatalf("Midi64 should have stolen voice 0, got %d", got)
	}
	if boundVoice(t, pool, ButtonKey(0)) != -1 {
		t.Fatal("Button0 should be dispossessed")
	}
	if !keys.Held(ButtonKey(0)) {
		t.Fatal("stolen Button0 must remain held (waiting)")
	}
	if got := boundVoice(t, pool, ButtonKey(1)); got != 1 {
		t.Fatalf("Button1 should keep voice 1, got %d", got)
	}

	alloc.OnKeyReleased(MidiKey(64))
	checkBindingSymmetry(t, keys, pool)
	if got := boundVoice(t, pool, ButtonKey(0)); got != 0 {
		t.Fatalf("restitution should return voice 0 to Button0, got %d", got)
	}
	if got := boundVoice(t, pool, ButtonKey(1)); got != 1 {
		t.Fatalf("Button1 should be untouched by restitution, got %d", got)
	}
}

// Releasing a sounding key must never silence another sounding key, and
// restitution prefers the longest-waiting key.
func TestAllocator_RestitutionOldestWaitingFirst(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)

	alloc.OnKeyPressed(ButtonKey(0)) // stamp 1
	alloc.OnKeyPressed(ButtonKey(1)) // stamp 2
	alloc.OnKeyPressed(MidiKey(64))  // stamp 3, steals Button0
	alloc.OnKeyPressed(MidiKey(65))  // stamp 4, steals Button1

	// Both buttons waiting; Button0 has been waiting longer.
	alloc.OnKeyReleased(MidiKey(64))
	checkBindingSymmetry(t, keys, pool)
	if boundVoice(t, pool, ButtonKey(0)) < 0 {
		t.Fatal("oldest waiting key (Button0) should regain the freed voice")
	}
	if boundVoice(t, pool, ButtonKey(1)) >= 0 {
		t.Fatal("Button1 must still be waiting, only one voice freed")
	}

	alloc.OnKeyReleased(MidiKey(65))
	checkBindingSymmetry(t, keys, pool)
	if boundVoice(t, pool, ButtonKey(1)) < 0 {
		t.Fatal("Button1 should regain a voice once a second voice frees")
	}
}

// A stolen key keeps its original stamp: a voice freed later goes to it
// ahead of any key pressed after the steal.
func TestAllocator_StolenKeyKeepsSeniority(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)

	alloc.OnKeyPressed(ButtonKey(0)) // A
	alloc.OnKeyPressed(ButtonKey(1)) // B
	alloc.OnKeyPressed(MidiKey(60))  // C steals A; A waiting with stamp 1
	alloc.OnKeyPressed(MidiKey(61))  // D steals B; B waiting with stamp 2

	alloc.OnKeyReleased(MidiKey(61))
	checkBindingSymmetry(t, keys, pool)
	if boundVoice(t, pool, ButtonKey(0)) < 0 {
		t.Fatal("A was stolen first and must be restored first")
	}
}

func TestAllocator_ReleaseIdempotent(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)

	alloc.OnKeyReleased(ButtonKey(0)) // Never pressed: no-op
	checkBindingSymmetry(t, keys, pool)

	alloc.OnKeyPressed(ButtonKey(0))
	alloc.OnKeyReleased(ButtonKey(0))
	before := alloc.counter
	alloc.OnKeyReleased(ButtonKey(0)) // Second release: no-op
	checkBindingSymmetry(t, keys, pool)
	if alloc.counter != before {
		t.Fatal("release must not consume ordering counter values")
	}
	if pool.ActiveCount() != 0 {
		t.Fatal("no voice should sound after release")
	}
}

func TestAllocator_InvalidKeysDiscarded(t *testing.T) {
	alloc, keys, pool := newTestAllocator(4, 2)

	alloc.OnKeyPressed(ButtonKey(4))              // Out of configured range
	alloc.OnKeyPressed(Key{Domain: 7, ID: 0})     // Unknown domain
	alloc.OnKeyReleased(ButtonKey(200))           // Out of range release
	alloc.OnKeyReleased(Key{Domain: 9, ID: 0x40}) // Unknown domain release

	if alloc.counter != 0 {
		t.Fatal("invalid events must not touch the ordering counter")
	}
	if pool.ActiveCount() != 0 || keys.HeldCount() != 0 {
		t.Fatal("invalid events must not mutate any state")
	}
}

// Only acquisition order matters for stealing, never the key's domain.
func TestAllocator_DomainIndependence(t *testing.T) {
	alloc, _, pool := newTestAllocator(8, 2)

	alloc.OnKeyPressed(MidiKey(60)) // oldest
	alloc.OnKeyPressed(ButtonKey(0))
	alloc.OnKeyPressed(ButtonKey(1)) // steals the MIDI key, not a button

	if boundVoice(t, pool, MidiKey(60)) >= 0 {
		t.Fatal("oldest key should be stolen regardless of domain")
	}
	if boundVoice(t, pool, ButtonKey(0)) < 0 || boundVoice(t, pool, ButtonKey(1)) < 0 {
		t.Fatal("both newer keys should be sounding")
	}
}

// Pressing a (V+1)-th key always leaves V keys sounding, the new key
// among them.
func TestAllocator_ProgressUnderOverflow(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)

	alloc.OnKeyPressed(ButtonKey(0))
	alloc.OnKeyPressed(ButtonKey(1))
	alloc.OnKeyPressed(ButtonKey(2))
	checkBindingSymmetry(t, keys, pool)

	if n := pool.ActiveCount(); n != 2 {
		t.Fatalf("press overflow must keep exactly 2 voices sounding, got %d", n)
	}
	if boundVoice(t, pool, ButtonKey(2)) < 0 {
		t.Fatal("the freshly pressed key must be sounding")
	}
}

// Re-pressing a sounding key re-gates the same voice and re-stamps the
// key, moving it to the back of the stealing order.
func TestAllocator_RepressRetriggersAndRestamps(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)

	alloc.OnKeyPressed(ButtonKey(0))
	alloc.OnKeyPressed(ButtonKey(1))
	_, genBefore := pool.Binding(0)

	alloc.OnKeyPressed(ButtonKey(0)) // Re-press: same voice, new stamp
	b, genAfter := pool.Binding(0)
	if !b.Active || b.Key != ButtonKey(0) {
		t.Fatalf("re-press must keep the binding, got %+v", b)
	}
	if genAfter == genBefore {
		t.Fatal("re-press must advance the generation (re-gate)")
	}
	checkBindingSymmetry(t, keys, pool)

	// Button0 is now youngest; the steal must hit Button1.
	alloc.OnKeyPressed(MidiKey(72))
	if boundVoice(t, pool, ButtonKey(0)) < 0 {
		t.Fatal("re-stamped key must not be the stealing victim")
	}
	if boundVoice(t, pool, ButtonKey(1)) >= 0 {
		t.Fatal("oldest key (Button1) should have been stolen")
	}
}

// With a single voice the engine degrades to last-note priority with
// restitution, and never deadlocks or double-binds.
func TestAllocator_SingleVoice(t *testing.T) {
	alloc, keys, pool := newTestAllocator(4, 1)

	alloc.OnKeyPressed(ButtonKey(0))
	alloc.OnKeyPressed(ButtonKey(1))
	if boundVoice(t, pool, ButtonKey(1)) != 0 {
		t.Fatal("new press must steal the only voice")
	}
	alloc.OnKeyReleased(ButtonKey(1))
	if boundVoice(t, pool, ButtonKey(0)) != 0 {
		t.Fatal("restitution must return the voice to the waiting key")
	}
	checkBindingSymmetry(t, keys, pool)
}

// Conservation: active voices never exceed pool size nor held keys, over
// a long deterministic pseudo-random event sequence.
func TestAllocator_InvariantsUnderRandomSequence(t *testing.T) {
	alloc, keys, pool := newTestAllocator(8, 2)
	rng := rand.New(rand.NewSource(1))

	for step := 0; step < 5000; step++ {
		var k Key
		if rng.Intn(2) == 0 {
			k = ButtonKey(rng.Intn(10)) // Occasionally out of range
		} else {
			k = MidiKey(rng.Intn(128))
		}
		if rng.Intn(2) == 0 {
			alloc.OnKeyPressed(k)
		} else {
			alloc.OnKeyReleased(k)
		}

		active := pool.ActiveCount()
		held := keys.HeldCount()
		if active > pool.Size() {
			t.Fatalf("step %d: %d active voices in a pool of %d", step, active, pool.Size())
		}
		if active > held {
			t.Fatalf("step %d: %d active voices but only %d held keys", step, active, held)
		}
		// With stealing and restitution, voices idle only when fewer keys
		// are held than the pool has slots.
		if held >= pool.Size() && active != pool.Size() {
			t.Fatalf("step %d: %d keys held but only %d voices active", step, held, active)
		}
		if step%50 == 0 {
			checkBindingSymmetry(t, keys, pool)
		}
	}
	checkBindingSymmetry(t, keys, pool)
}

func TestAllocator_CounterNeverRepeats(t *testing.T) {
	alloc, _, _ := newTestAllocator(8, 2)

	seen := map[uint64]bool{}
	for i := 0; i < 100; i++ {
		alloc.OnKeyPressed(ButtonKey(i % 4))
		st := alloc.keys.state(ButtonKey(i % 4))
		if seen[st.stamp] {
			t.Fatalf("stamp %d issued twice", st.stamp)
		}
		seen[st.stamp] = true
	}
}
