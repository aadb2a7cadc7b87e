// voice_allocator.go - Press/release handling, voice stealing and restitution

/*
The allocator maps key press/release events onto the voice pool:

  - A press stamps the key with a fresh value of the global ordering
    counter and binds an idle voice if one exists. With no idle voice it
    steals from the active voice whose key has the oldest stamp; the
    stolen key stays held and becomes "waiting".
  - A release frees the key's voice (if it owned one) and then sweeps
    idle voices back onto waiting keys, oldest stamp first, so a key
    dispossessed by a newer press gets its voice back before any younger
    waiting key.

Both operations run on the control context only. They never fail: an
out-of-range key is discarded without touching any state, and stealing
guarantees a valid press always ends up sounding.
*/

package main

type VoiceAllocator struct {
	keys *KeyRegistry
	pool *VoicePool

	// Ordering counter. Incremented on every press edge, including
	// re-presses of held keys; never reused, so stamps total-order all
	// acquisitions for stealing and restitution.
	counter uint64
}

func NewVoiceAllocator(keys *KeyRegistry, pool *VoicePool) *VoiceAllocator {
	return &VoiceAllocator{keys: keys, pool: pool}
}

// OnKeyPressed marks k held with a fresh acquisition stamp and makes sure
// it sounds: idle voice first, otherwise the longest-held active voice is
// stolen. Invalid keys are discarded.
func (a *VoiceAllocator) OnKeyPressed(k Key) {
	st := a.keys.state(k)
	if st == nil {
		return
	}
	a.counter++
	st.held = true
	st.stamp = a.counter

	if st.owner >= 0 {
		// Already sounding; re-gate the envelope on the same voice.
		a.pool.retrigger(st.owner)
		return
	}
	if v := a.pool.idleVoice(); v >= 0 {
		a.attach(v, k, st)
		return
	}
	v := a.oldestActiveVoice()
	if v < 0 {
		return
	}
	if victim, ok := a.pool.boundKey(v); ok {
		// The victim stays held and keeps its stamp: it is now waiting,
		// not released, and retains its seniority for restitution.
		a.keys.state(victim).owner = -1
	}
	a.attach(v, k, st)
}

// OnKeyReleased marks k released, frees its voice if it owned one and
// hands any idle voices back to waiting keys. Releasing a key that is
// not held is a no-op.
func (a *VoiceAllocator) OnKeyReleased(k Key) {
	st := a.keys.state(k)
	if st == nil || !st.held {
		return
	}
	st.held = false
	st.stamp = 0
	if st.owner >= 0 {
		a.pool.release(st.owner)
		st.owner = -1
	}
	a.restitution()
}

func (a *VoiceAllocator) attach(voice int, k Key, st *keyState) {
	st.owner = voice
	a.pool.bind(voice, k)
}

// oldestActiveVoice picks the stealing victim: the active voice whose
// bound key has the smallest acquisition stamp.
func (a *VoiceAllocator) oldestActiveVoice() int {
	best := -1
	var bestStamp uint64
	for i := 0; i < a.pool.Size(); i++ {
		k, active := a.pool.boundKey(i)
		if !active {
			continue
		}
		st := a.keys.state(k)
		if st == nil {
			continue
		}
		if best < 0 || st.stamp < bestStamp {
			best, bestStamp = i, st.stamp
		}
	}
	return best
}

// restitution assigns idle voices to waiting keys, oldest first, until
// one side runs out.
func (a *VoiceAllocator) restitution() {
	for {
		v := a.pool.idleVoice()
		if v < 0 {
			return
		}
		k, ok := a.keys.oldestWaiting()
		if !ok {
			return
		}
		a.attach(v, k, a.keys.state(k))
	}
}
