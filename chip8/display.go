package chip8

const (
	WIDTH  = 64 // Framebuffer width in pixels.
	HEIGHT = 32 // Framebuffer height in pixels.
)

// Display is the 64x32 monochrome framebuffer. Pixels holds one cell per
// pixel, row-major, each either 0 or 1. Dirty is set whenever the buffer
// changes and is cleared by the renderer once it has drawn a frame.
type Display struct {
	Pixels [WIDTH * HEIGHT]byte
	Dirty  bool
}

// Clear zeroes the framebuffer.
func (d *Display) Clear() {
	clear(d.Pixels[:])
	d.Dirty = true
}

// Pixel returns the pixel at (x, y), each coordinate taken modulo the
// framebuffer dimensions.
func (d *Display) Pixel(x, y int) byte {
	return d.Pixels[(y%HEIGHT)*WIDTH+(x%WIDTH)]
}

// DrawSprite XORs an 8-bit-wide sprite into the framebuffer at (x, y).
// Each entry of rows is one sprite row, most significant bit leftmost.
// Coordinates wrap independently per axis; sprites running off an edge
// continue on the opposite one. The return value reports whether any set
// pixel was erased; the caller records it in VF. The dirty flag is set on
// every call, even for an all-zero sprite.
func (d *Display) DrawSprite(x, y uint8, rows []byte) (collided bool) {
	for row, sprite := range rows {
		py := (int(y) + row) % HEIGHT
		for bit := range 8 {
			if sprite&(0x80>>bit) == 0 {
				continue
			}
			px := (int(x) + bit) % WIDTH
			idx := py*WIDTH + px
			if d.Pixels[idx] != 0 {
				collided = true
			}
			d.Pixels[idx] ^= 1
		}
	}

	d.Dirty = true

	return
}
