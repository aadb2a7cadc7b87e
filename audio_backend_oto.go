//go:build !headless

// audio_backend_oto.go - OTO v3 stereo audio output

package main

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

type OtoPlayer struct {
	ctx       *oto.Context
	player    *oto.Player
	engine    atomic.Pointer[SynthEngine] // Atomic for lock-free Read()
	sampleBuf []float32                   // Pre-allocated block buffer
	started   bool
	mutex     sync.Mutex // Only for setup/control operations
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0, // Driver default
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &OtoPlayer{ctx: ctx}, nil
}

func (op *OtoPlayer) SetupPlayer(engine *SynthEngine) {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	op.engine.Store(engine)
	op.player = op.ctx.NewPlayer(op)
	op.sampleBuf = make([]float32, 2*BLOCK_SIZE)
}

// Read renders whole stereo blocks into p. Hot path: the engine pointer
// is loaded atomically, no lock is taken.
func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	engine := op.engine.Load()
	if engine == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	numSamples := len(p) / 4
	if numSamples == 0 {
		return 0, nil
	}
	if len(op.sampleBuf) < numSamples {
		op.sampleBuf = make([]float32, numSamples)
	}
	samples := op.sampleBuf[:numSamples]

	// Render in engine-sized blocks; a trailing partial block is fine,
	// RenderBlock only needs an even sample count.
	rendered := numSamples &^ 1
	for off := 0; off < rendered; off += 2 * BLOCK_SIZE {
		end := off + 2*BLOCK_SIZE
		if end > rendered {
			end = rendered
		}
		engine.RenderBlock(samples[off:end])
	}
	if rendered < numSamples {
		samples[rendered] = 0
	}

	// The backing array holds numSamples*4 bytes; p may carry up to three
	// extra bytes past the last whole sample, which are zeroed instead.
	nb := numSamples * 4
	copy(p[:nb], (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:nb])
	for i := nb; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (op *OtoPlayer) Start() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

func (op *OtoPlayer) Stop() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.started && op.player != nil {
		op.player.Pause()
		op.started = false
	}
}

func (op *OtoPlayer) Close() {
	op.Stop()
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.player != nil {
		op.player.Close()
		op.player = nil
	}
}

func (op *OtoPlayer) IsStarted() bool {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	return op.started
}
