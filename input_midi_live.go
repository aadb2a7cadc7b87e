// input_midi_live.go - Live MIDI port input via gomidi/rtmidi

package main

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

// Virtual/system ports that are never auto-selected.
var midiExcludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

// OpenMidiInput connects to the first MIDI input port whose name contains
// portName (case-insensitive; empty matches any non-excluded port) and
// streams Note-On/Note-Off as key events. The returned stop function
// detaches the listener; call CloseMidi once at shutdown.
func OpenMidiInput(portName string, events chan<- KeyEvent) (func(), error) {
	in, err := findMidiPort(portName)
	if err != nil {
		return nil, err
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			sendMidiEvent(events, KeyEvent{Key: MidiKey(int(key)), Pressed: true})
		case msg.GetNoteEnd(&ch, &key):
			sendMidiEvent(events, KeyEvent{Key: MidiKey(int(key)), Pressed: false})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("midi listen %q: %w", in.String(), err)
	}
	fmt.Printf("MIDI input: %s\n", in.String())
	return stop, nil
}

// CloseMidi releases the underlying driver.
func CloseMidi() {
	midi.CloseDriver()
}

func findMidiPort(portName string) (drivers.In, error) {
	want := strings.ToLower(portName)
	for _, in := range midi.GetInPorts() {
		name := in.String()
		if midiPortExcluded(name) {
			continue
		}
		if want == "" || strings.Contains(strings.ToLower(name), want) {
			return in, nil
		}
	}
	if portName == "" {
		return nil, fmt.Errorf("no MIDI input ports available")
	}
	return nil, fmt.Errorf("no MIDI input port matching %q", portName)
}

func midiPortExcluded(name string) bool {
	for _, pat := range midiExcludedPorts {
		if strings.Contains(name, pat) {
			return true
		}
	}
	return false
}

// sendMidiEvent enqueues without ever blocking the driver callback.
func sendMidiEvent(events chan<- KeyEvent, ev KeyEvent) {
	select {
	case events <- ev:
	default:
	}
}
