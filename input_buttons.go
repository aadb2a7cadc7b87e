// input_buttons.go - Polled button lines with debounce and edge detection

/*
Button lines are active-low with pull-ups, as on the original hardware: a
line reads asserted while its key is pressed. The scanner polls all lines
once per control tick, requires DEBOUNCE_POLLS consecutive identical
reads before accepting a line's new level, and emits one press event on
each released-to-held transition and one release event on the reverse.
The allocator therefore only ever sees clean edges.
*/

package main

// KeyEvent is the normalized unit all input sources produce.
type KeyEvent struct {
	Key     Key
	Pressed bool
}

// ButtonReader abstracts the line sampling (GPIO bank, terminal keyboard,
// test fixture). Bit i of the returned mask is set while line i is
// asserted.
type ButtonReader interface {
	ReadButtons() uint32
}

// ButtonFunc adapts a plain function to ButtonReader.
type ButtonFunc func() uint32

func (f ButtonFunc) ReadButtons() uint32 { return f() }

type ButtonScanner struct {
	reader ButtonReader
	lines  int
	events chan<- KeyEvent

	stable  uint32 // Debounced, accepted line state
	pending uint32 // Last raw read
	count   []uint8
}

func NewButtonScanner(reader ButtonReader, lines int, events chan<- KeyEvent) *ButtonScanner {
	if lines > MAX_BUTTONS {
		lines = MAX_BUTTONS
	}
	if lines > 32 {
		lines = 32
	}
	return &ButtonScanner{
		reader: reader,
		lines:  lines,
		events: events,
		count:  make([]uint8, lines),
	}
}

// Poll samples all lines once. Call at the control loop cadence.
func (s *ButtonScanner) Poll() {
	raw := s.reader.ReadButtons()
	for i := 0; i < s.lines; i++ {
		bit := uint32(1) << i
		lvl := raw & bit
		if lvl == s.stable&bit {
			// At the accepted level; any bounce-in-progress is forgotten.
			s.count[i] = 0
			s.pending = s.pending&^bit | lvl
			continue
		}
		if lvl != s.pending&bit {
			// Level moved again; restart the stability count.
			s.count[i] = 0
			s.pending = s.pending&^bit | lvl
		}
		if s.count[i]++; s.count[i] < DEBOUNCE_POLLS {
			continue
		}
		s.count[i] = 0
		s.stable ^= bit
		s.emit(KeyEvent{Key: ButtonKey(i), Pressed: s.stable&bit != 0})
	}
}

func (s *ButtonScanner) emit(ev KeyEvent) {
	select {
	case s.events <- ev:
	default:
		// Queue full: drop rather than stall the control loop. The line
		// state is level-based, so the next edge resynchronizes.
	}
}
