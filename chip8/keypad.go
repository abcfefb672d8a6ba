package chip8

const (
	NUM_KEYS = 16 // Keys 0x0..0xF.
)

// Keypad is the instantaneous state of the 16-key input matrix. The input
// collaborator sets and clears keys; the executor only reads them. No
// debouncing or edge detection is applied. Hosts that feed the keypad from
// a different goroutine than the one calling Cycle() must serialize access
// themselves.
type Keypad [NUM_KEYS]bool

// Set records a key as pressed or released.
func (k *Keypad) Set(key uint8, down bool) {
	k[key&0xf] = down
}

// Pressed reports whether a key is currently held.
func (k *Keypad) Pressed(key uint8) bool {
	return k[key&0xf]
}

// FirstPressed scans keys 0..15 in ascending order and returns the first
// held key; the lowest index always wins.
func (k *Keypad) FirstPressed() (key uint8, ok bool) {
	for n := range NUM_KEYS {
		if k[n] {
			return uint8(n), true
		}
	}

	return
}

// KeyWait is the cooperative wait-for-key state entered by opcode Fx0A.
// While armed, the executor performs no fetch and instead polls the keypad
// each Cycle() until a key is observed.
type KeyWait struct {
	Waiting bool
	Reg     uint8 // Target register for the latched key index.
}

// Arm enters the waiting state with reg as the destination register.
func (w *KeyWait) Arm(reg uint8) {
	w.Waiting = true
	w.Reg = reg
}

// Poll scans the keypad if waiting. On the first held key it disarms and
// returns the key index; the caller writes it into register Reg. If no key
// is held nothing changes.
func (w *KeyWait) Poll(keys *Keypad) (key uint8, ok bool) {
	if !w.Waiting {
		return
	}

	key, ok = keys.FirstPressed()
	if ok {
		w.Waiting = false
	}

	return
}

// Reset disarms the wait state.
func (w *KeyWait) Reset() {
	w.Waiting = false
	w.Reg = 0
}
