package chip8

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplay_Clear(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	d.Pixels[0] = 1
	d.Pixels[WIDTH*HEIGHT-1] = 1

	d.Clear()

	assert.True(d.Dirty)
	for n := range d.Pixels {
		assert.Equal(uint8(0), d.Pixels[n])
	}
}

func TestDisplay_DrawSprite_Collision(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	before := d.Pixels

	// First draw lights pixels, no collision.
	collided := d.DrawSprite(4, 2, []byte{0xff})
	assert.False(collided)
	assert.True(d.Dirty)
	for bit := range 8 {
		assert.Equal(uint8(1), d.Pixel(4+bit, 2))
	}

	// Second identical draw erases them all and collides.
	collided = d.DrawSprite(4, 2, []byte{0xff})
	assert.True(collided)
	assert.Equal(before, d.Pixels)
}

func TestDisplay_DrawSprite_WrapX(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	collided := d.DrawSprite(60, 0, []byte{0xff})
	assert.False(collided)

	// Columns 60..67 wrap to 60,61,62,63,0,1,2,3.
	for _, x := range []int{60, 61, 62, 63, 0, 1, 2, 3} {
		assert.Equal(uint8(1), d.Pixel(x, 0), "x=%d", x)
	}
	assert.Equal(uint8(0), d.Pixel(4, 0))
	assert.Equal(uint8(0), d.Pixel(59, 0))
}

func TestDisplay_DrawSprite_WrapY(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	d.DrawSprite(0, 30, []byte{0x80, 0x80, 0x80, 0x80})

	assert.Equal(uint8(1), d.Pixel(0, 30))
	assert.Equal(uint8(1), d.Pixel(0, 31))
	assert.Equal(uint8(1), d.Pixel(0, 0))
	assert.Equal(uint8(1), d.Pixel(0, 1))
	assert.Equal(uint8(0), d.Pixel(0, 2))
}

func TestDisplay_DrawSprite_ZeroRowsStillDirty(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	collided := d.DrawSprite(0, 0, []byte{0x00, 0x00})
	assert.False(collided)
	// The dirty flag is raised on every draw, even a blank one.
	assert.True(d.Dirty)
}

func TestDisplay_PartialCollision(t *testing.T) {
	assert := assert.New(t)

	d := &Display{}
	d.DrawSprite(0, 0, []byte{0xf0})
	collided := d.DrawSprite(4, 0, []byte{0xf0})

	// No overlap: pixels 0..3 then 4..7.
	assert.False(collided)

	collided = d.DrawSprite(7, 0, []byte{0x80})
	assert.True(collided)
	assert.Equal(uint8(0), d.Pixel(7, 0))
}
