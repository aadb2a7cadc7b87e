// audio_output.go - Audio backend interface and factory

package main

import "fmt"

const (
	AUDIO_BACKEND_OTO = iota
	AUDIO_BACKEND_NONE
)

// AudioOutput is implemented by all audio backends. The backend pulls
// blocks from the SynthEngine; Start/Stop gate the pull, Close releases
// the device.
type AudioOutput interface {
	Start()
	Stop()
	Close()
	IsStarted() bool
}

// NewAudioOutput constructs the requested backend bound to engine.
func NewAudioOutput(backend int, sampleRate int, engine *SynthEngine) (AudioOutput, error) {
	switch backend {
	case AUDIO_BACKEND_OTO:
		player, err := NewOtoPlayer(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("oto backend: %w", err)
		}
		player.SetupPlayer(engine)
		return player, nil
	case AUDIO_BACKEND_NONE:
		return &NullOutput{}, nil
	}
	return nil, fmt.Errorf("unknown audio backend %d", backend)
}

// NullOutput discards audio; used when no device is wanted (tests,
// script-driven runs on headless machines).
type NullOutput struct {
	started bool
}

func (n *NullOutput) Start()          { n.started = true }
func (n *NullOutput) Stop()           { n.started = false }
func (n *NullOutput) Close()          { n.started = false }
func (n *NullOutput) IsStarted() bool { return n.started }
