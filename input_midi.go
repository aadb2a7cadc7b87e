// input_midi.go - Serial MIDI byte stream decoder

/*
Decodes a raw MIDI wire stream into normalized key events. Only Note-On
and Note-Off are acted on, on any channel; a Note-On with velocity 0 is a
Note-Off per the MIDI spec. Running status is honoured, system realtime
bytes (0xF8-0xFF) may be interleaved anywhere and are skipped without
disturbing the message in flight, and everything else - other channel
voice messages, system common, stray data bytes - is consumed silently so
malformed or uninteresting traffic never reaches the allocator.

The decoder implements io.Writer so a serial port can be drained straight
into it with io.Copy.
*/

package main

const (
	midiNoteOff   = 0x80
	midiNoteOn    = 0x90
	midiStatusBit = 0x80
	midiRealtime  = 0xF8
	midiSystem    = 0xF0
)

// midiDataLen gives the data byte count for each channel voice message
// type (status high nibble 0x8..0xE). Used only to stay in sync across
// messages the decoder ignores.
var midiDataLen = map[byte]int{
	0x80: 2, // note off
	0x90: 2, // note on
	0xA0: 2, // poly aftertouch
	0xB0: 2, // control change
	0xC0: 1, // program change
	0xD0: 1, // channel aftertouch
	0xE0: 2, // pitch bend
}

type MidiDecoder struct {
	events chan<- KeyEvent

	status byte // Current running status, 0 if none
	data   [2]byte
	have   int
}

func NewMidiDecoder(events chan<- KeyEvent) *MidiDecoder {
	return &MidiDecoder{events: events}
}

// Write feeds raw wire bytes into the decoder. It never fails; malformed
// input is discarded, not reported.
func (d *MidiDecoder) Write(p []byte) (int, error) {
	for _, b := range p {
		d.feed(b)
	}
	return len(p), nil
}

func (d *MidiDecoder) feed(b byte) {
	if b >= midiRealtime {
		return // Realtime bytes are transparent to the stream
	}
	if b&midiStatusBit != 0 {
		if b >= midiSystem {
			// System common cancels running status; payloads (SysEx etc)
			// then fall through as ignored data bytes.
			d.status = 0
			d.have = 0
			return
		}
		d.status = b
		d.have = 0
		return
	}
	if d.status == 0 {
		return // Data byte with no status to attach to
	}
	d.data[d.have] = b
	d.have++
	if d.have < midiDataLen[d.status&0xF0] {
		return
	}
	d.have = 0 // Running status: keep d.status for the next message
	switch d.status & 0xF0 {
	case midiNoteOn:
		if d.data[1] > 0 {
			d.emit(KeyEvent{Key: MidiKey(int(d.data[0])), Pressed: true})
		} else {
			d.emit(KeyEvent{Key: MidiKey(int(d.data[0])), Pressed: false})
		}
	case midiNoteOff:
		d.emit(KeyEvent{Key: MidiKey(int(d.data[0])), Pressed: false})
	}
}

func (d *MidiDecoder) emit(ev KeyEvent) {
	select {
	case d.events <- ev:
	default:
	}
}
