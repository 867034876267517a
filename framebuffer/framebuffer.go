// Package framebuffer captures the handheld's display as a PNG.
//
// Geometry is read from sysfs on every capture and never cached: the
// display may change mode between two screenshots.
package framebuffer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	DefaultDevice = "/dev/fb0"
	DefaultSysfs  = "/sys/class/graphics/fb0"

	// Panel size in its native portrait orientation.
	Width  = 240
	Height = 320
)

// ErrFormat reports a geometry attribute that is not a positive integer,
// is too large to address, or describes pixels narrower than a byte.
var ErrFormat = errors.New("malformed framebuffer geometry")

// Geometry is the memory layout of the framebuffer.
type Geometry struct {
	Stride       int // bytes per row, including padding
	BitsPerPixel int
}

// BytesPerPixel returns the per-pixel step inside a row.
func (g Geometry) BytesPerPixel() int { return g.BitsPerPixel / 8 }

// ReadGeometry reads stride and bits_per_pixel from a sysfs fbN directory.
func ReadGeometry(sysDir string) (Geometry, error) {
	stride, err := readAttr(sysDir, "stride")
	if err != nil {
		return Geometry{}, err
	}
	bpp, err := readAttr(sysDir, "bits_per_pixel")
	if err != nil {
		return Geometry{}, err
	}
	if bpp < 8 {
		return Geometry{}, fmt.Errorf("%w: bits_per_pixel = %d, less than one byte", ErrFormat, bpp)
	}
	return Geometry{Stride: stride, BitsPerPixel: bpp}, nil
}

func readAttr(dir, name string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return 0, fmt.Errorf("reading framebuffer %s: %w", name, err)
	}
	text := strings.TrimSpace(string(data))
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s = %q", ErrFormat, name, text)
	}
	return n, nil
}

// Decode565 expands a little-endian RGB565 pixel to opaque 8-bit RGBA,
// replicating the high bits into the vacated low bits.
func Decode565(v uint16) color.NRGBA {
	r := uint8(v>>11) & 0x1F
	g := uint8(v>>5) & 0x3F
	b := uint8(v) & 0x1F
	return color.NRGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xFF,
	}
}

// Decode converts raw framebuffer memory into a width x height image.
// Pixels whose two bytes fall outside data are opaque black.
func Decode(data []byte, g Geometry, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	bpp := g.BytesPerPixel()
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			c := color.NRGBA{A: 0xFF}
			if off, ok := g.offset(x, y, bpp, len(data)); ok {
				c = Decode565(uint16(data[off]) | uint16(data[off+1])<<8)
			}
			p := row[x*4 : x*4+4]
			p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
		}
	}
	return img
}

// offset returns where pixel (x, y) starts in a buffer of n bytes. It
// reports false when the pixel's two bytes are not all inside the buffer,
// and never overflows whatever the geometry.
func (g Geometry) offset(x, y, step, n int) (int, bool) {
	if g.Stride <= 0 || y > n/g.Stride {
		return 0, false
	}
	off := y * g.Stride
	if step > 0 && x > (n-off)/step {
		return 0, false
	}
	off += x * step
	if off < 0 || off+1 >= n {
		return 0, false
	}
	return off, true
}

// Rotate turns img 90 degrees clockwise; the result is height x width.
func Rotate(img image.Image) *image.NRGBA {
	return imaging.Rotate270(img)
}

// Encode writes img as a PNG file at path. A partially written file is
// removed.
func Encode(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
