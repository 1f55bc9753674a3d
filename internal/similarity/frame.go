package similarity

import (
	"fmt"
	"image"
	"image/color"
)

// Frame is a decoded video frame stored as packed 8-bit RGB triplets.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a black frame of the given dimensions.
func NewFrame(width, height int) Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Frame{Width: width, Height: height, Pix: make([]byte, width*height*3)}
}

// Validate reports whether the pixel buffer matches the declared dimensions.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame dimensions %dx%d must be positive", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return fmt.Errorf("frame buffer holds %d bytes, expected %d", len(f.Pix), want)
	}
	return nil
}

// Set writes one RGB pixel. Out-of-range coordinates are ignored.
func (f Frame) Set(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	off := (y*f.Width + x) * 3
	f.Pix[off] = r
	f.Pix[off+1] = g
	f.Pix[off+2] = b
}

// Fill paints a rectangle with one colour, clipped to the frame bounds.
func (f Frame) Fill(rect image.Rectangle, r, g, b uint8) {
	rect = rect.Intersect(image.Rect(0, 0, f.Width, f.Height))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			f.Set(x, y, r, g, b)
		}
	}
}

// Clone returns a deep copy so callers may reuse their decode buffer.
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// Image exposes the frame as an RGBA image for encoders.
func (f Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Width*3 : (y+1)*f.Width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img
}

// FromImage converts any image into a packed RGB frame.
func FromImage(img image.Image) Frame {
	bounds := img.Bounds()
	frame := NewFrame(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			frame.Set(x-bounds.Min.X, y-bounds.Min.Y, c.R, c.G, c.B)
		}
	}
	return frame
}

// luma converts the frame to a single-channel intensity plane using BT.601
// weights in fixed point.
func (f Frame) luma() []uint8 {
	out := make([]uint8, f.Width*f.Height)
	for i := range out {
		r := uint32(f.Pix[i*3])
		g := uint32(f.Pix[i*3+1])
		b := uint32(f.Pix[i*3+2])
		out[i] = uint8((r*4899 + g*9617 + b*1868 + 8192) >> 14)
	}
	return out
}
