package timer

// Timer implements the DIV/TIMA/TMA/TAC register block.
//
// The divider is a 16-bit counter incremented every T-cycle; DIV exposes its
// top byte. TIMA increments on the falling edge of a single divider bit
// selected by TAC, which means DIV and TAC writes can produce edges of their
// own. An overflow does not reload immediately: TIMA reads 0 for one machine
// cycle, then reloads from TMA and requests the interrupt. Edges are ignored
// while that reload is pending, and a TIMA write during the window cancels it.
type Timer struct {
	divInternal uint16
	tima        byte
	tma         byte
	tac         byte // low 3 bits

	reloadPending bool
	reloadDelay   int // T-cycles until the pending reload lands

	requestInterrupt func()
}

// New returns a Timer that calls request when TIMA reloads after overflow.
func New(request func()) *Timer {
	return &Timer{requestInterrupt: request}
}

// Advance moves the timer forward by the given number of T-cycles.
func (t *Timer) Advance(cycles int) {
	for i := 0; i < cycles; i++ {
		t.tick()
	}
}

func (t *Timer) tick() {
	prev := t.timerInput()
	t.divInternal++
	if t.reloadPending {
		t.reloadDelay--
		if t.reloadDelay <= 0 {
			t.reloadPending = false
			t.tima = t.tma
			t.requestInterrupt()
		}
		return
	}
	if prev && !t.timerInput() {
		t.incrementTIMA()
	}
}

// timerInput is the level feeding the TIMA increment edge detector:
// the selected divider bit ANDed with the TAC enable.
func (t *Timer) timerInput() bool {
	if t.tac&0x04 == 0 {
		return false
	}
	var bit uint
	switch t.tac & 0x03 {
	case 0x00:
		bit = 9
	case 0x01:
		bit = 3
	case 0x02:
		bit = 5
	case 0x03:
		bit = 7
	}
	return (t.divInternal>>bit)&1 == 1
}

func (t *Timer) incrementTIMA() {
	if t.tima == 0xFF {
		t.tima = 0x00
		t.reloadPending = true
		t.reloadDelay = 4
		return
	}
	t.tima++
}

// Read handles 0xFF04–0xFF07.
func (t *Timer) Read(addr uint16) byte {
	switch addr {
	case 0xFF04:
		return byte(t.divInternal >> 8)
	case 0xFF05:
		return t.tima
	case 0xFF06:
		return t.tma
	case 0xFF07:
		return 0xF8 | (t.tac & 0x07)
	default:
		return 0xFF
	}
}

// Write handles 0xFF04–0xFF07.
func (t *Timer) Write(addr uint16, value byte) {
	switch addr {
	case 0xFF04:
		// Any write zeroes the whole divider; the selected bit dropping
		// from 1 to 0 counts as a falling edge.
		prev := t.timerInput()
		t.divInternal = 0
		if !t.reloadPending && prev && !t.timerInput() {
			t.incrementTIMA()
		}
	case 0xFF05:
		if t.reloadPending {
			t.reloadPending = false
		}
		t.tima = value
	case 0xFF06:
		t.tma = value
	case 0xFF07:
		prev := t.timerInput()
		t.tac = value & 0x07
		if !t.reloadPending && prev && !t.timerInput() {
			t.incrementTIMA()
		}
	}
}
