package framebuffer

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestDecode565(t *testing.T) {
	cases := []struct {
		raw  uint16
		want color.NRGBA
	}{
		{0x001F, color.NRGBA{0, 0, 255, 255}},
		{0xFFFF, color.NRGBA{255, 255, 255, 255}},
		{0x0000, color.NRGBA{0, 0, 0, 255}},
		{0xF800, color.NRGBA{255, 0, 0, 255}},
		{0x07E0, color.NRGBA{0, 255, 0, 255}},
		{0x0841, color.NRGBA{8, 8, 8, 255}},
	}
	for _, c := range cases {
		if got := Decode565(c.raw); got != c.want {
			t.Errorf("Decode565(%#04x) = %v, want %v", c.raw, got, c.want)
		}
	}
}

// fbBytes builds a framebuffer with the given stride where pixel (x, y)
// holds px(x, y).
func fbBytes(w, h, stride int, px func(x, y int) uint16) []byte {
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			binary.LittleEndian.PutUint16(data[y*stride+x*2:], px(x, y))
		}
	}
	return data
}

func TestDecodeHonorsStride(t *testing.T) {
	// 4 pixels wide, 8 bytes of pixels plus 4 bytes of row padding.
	data := fbBytes(4, 3, 12, func(x, y int) uint16 {
		if x == 3 && y == 2 {
			return 0x001F
		}
		return 0xFFFF
	})
	img := Decode(data, Geometry{Stride: 12, BitsPerPixel: 16}, 4, 3)

	if got := img.NRGBAAt(3, 2); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("(3,2) = %v, want blue", got)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("(0,0) = %v, want white", got)
	}
}

func TestDecodeShortBufferIsBlack(t *testing.T) {
	data := fbBytes(4, 1, 8, func(x, y int) uint16 { return 0xFFFF })
	img := Decode(data, Geometry{Stride: 8, BitsPerPixel: 16}, 4, 2)

	if got := img.NRGBAAt(3, 0); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("last in-range pixel = %v", got)
	}
	for x := 0; x < 4; x++ {
		if got := img.NRGBAAt(x, 1); got != (color.NRGBA{0, 0, 0, 255}) {
			t.Errorf("(%d,1) past end = %v, want opaque black", x, got)
		}
	}

	// One byte left over is still not a whole pixel.
	img = Decode([]byte{0xFF}, Geometry{Stride: 2, BitsPerPixel: 16}, 1, 1)
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("half pixel = %v, want opaque black", got)
	}
}

func TestDecodeHugeStrideIsBlack(t *testing.T) {
	data := fbBytes(4, 1, 8, func(x, y int) uint16 { return 0xFFFF })
	white := color.NRGBA{255, 255, 255, 255}
	black := color.NRGBA{0, 0, 0, 255}
	for _, stride := range []int{math.MaxInt, math.MaxInt/4 + 1, math.MaxInt / 3} {
		img := Decode(data, Geometry{Stride: stride, BitsPerPixel: 16}, 4, 5)
		if got := img.NRGBAAt(2, 0); got != white {
			t.Errorf("stride %d: (2,0) = %v, want white", stride, got)
		}
		for y := 1; y < 5; y++ {
			if got := img.NRGBAAt(0, y); got != black {
				t.Errorf("stride %d: (0,%d) = %v, want opaque black", stride, y, got)
			}
		}
	}

	img := Decode(data, Geometry{Stride: 8, BitsPerPixel: math.MaxInt}, 4, 1)
	if got := img.NRGBAAt(1, 0); got != black {
		t.Errorf("huge pixel step: (1,0) = %v, want opaque black", got)
	}
}

func writeSysfs(t *testing.T, stride, bpp string) string {
	t.Helper()
	dir := t.TempDir()
	if stride != "" {
		os.WriteFile(filepath.Join(dir, "stride"), []byte(stride), 0644)
	}
	if bpp != "" {
		os.WriteFile(filepath.Join(dir, "bits_per_pixel"), []byte(bpp), 0644)
	}
	return dir
}

func TestReadGeometry(t *testing.T) {
	dir := writeSysfs(t, "480\n", "16\n")
	g, err := ReadGeometry(dir)
	if err != nil {
		t.Fatal(err)
	}
	if g.Stride != 480 || g.BitsPerPixel != 16 || g.BytesPerPixel() != 2 {
		t.Errorf("geometry = %+v", g)
	}
}

func TestReadGeometryFormatErrors(t *testing.T) {
	for _, c := range []struct{ stride, bpp string }{
		{"abc", "16"},
		{"480", "sixteen"},
		{"0", "16"},
		{"480", "-16"},
		{" ", "16"},
		{"9223372036854775807", "16"},
		{"4294967296", "16"},
		{"480", "4"},
		{"480", "1"},
	} {
		_, err := ReadGeometry(writeSysfs(t, c.stride, c.bpp))
		if !errors.Is(err, ErrFormat) {
			t.Errorf("stride=%q bpp=%q: err = %v, want ErrFormat", c.stride, c.bpp, err)
		}
	}
}

func TestReadGeometryMissingAttr(t *testing.T) {
	_, err := ReadGeometry(writeSysfs(t, "480", ""))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
	if errors.Is(err, ErrFormat) {
		t.Error("missing attribute reported as a format error")
	}
}

func TestRotateSwapsDimensions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 5))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 255, 255})

	r := Rotate(img)
	if b := r.Bounds(); b.Dx() != 5 || b.Dy() != 3 {
		t.Fatalf("rotated bounds = %v, want 5x3", b)
	}
	// Clockwise: the top-left corner moves to the top-right.
	if got := r.NRGBAAt(4, 0); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("top-right = %v, want blue", got)
	}
}

func TestRotateFourTimesIsIdentity(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 7))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 13)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}

	r := img
	for i := 0; i < 4; i++ {
		r = Rotate(r)
	}
	if r.Bounds() != img.Bounds() {
		t.Fatalf("bounds = %v, want %v", r.Bounds(), img.Bounds())
	}
	for y := 0; y < 7; y++ {
		for x := 0; x < 4; x++ {
			if r.NRGBAAt(x, y) != img.NRGBAAt(x, y) {
				t.Fatalf("(%d,%d) = %v, want %v", x, y, r.NRGBAAt(x, y), img.NRGBAAt(x, y))
			}
		}
	}
}

func fakeDevice(t *testing.T, data []byte) *Device {
	t.Helper()
	sys := writeSysfs(t, "480\n", "16\n")
	fb := filepath.Join(t.TempDir(), "fb0")
	if err := os.WriteFile(fb, data, 0644); err != nil {
		t.Fatal(err)
	}
	return NewDevice(fb, sys)
}

func TestCaptureWritesRotatedPNG(t *testing.T) {
	data := fbBytes(Width, Height, 480, func(x, y int) uint16 {
		if x == 0 && y == 0 {
			return 0x001F
		}
		return 0x0000
	})
	d := fakeDevice(t, data)
	out := filepath.Join(t.TempDir(), "shot.png")

	if err := d.Capture(out); err != nil {
		t.Fatal(err)
	}

	img, err := imaging.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != Height || b.Dy() != Width {
		t.Fatalf("bounds = %v, want %dx%d", b, Height, Width)
	}
	got := color.NRGBAModel.Convert(img.At(Height-1, 0)).(color.NRGBA)
	if got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("rotated corner = %v, want blue", got)
	}
}

func TestCaptureUnwritableDestination(t *testing.T) {
	d := fakeDevice(t, make([]byte, 480*Height))
	out := filepath.Join(t.TempDir(), "missing", "shot.png")
	err := d.Capture(out)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestCaptureBadGeometryWritesNothing(t *testing.T) {
	sys := writeSysfs(t, "garbage", "16")
	fb := filepath.Join(t.TempDir(), "fb0")
	os.WriteFile(fb, make([]byte, 16), 0644)
	d := NewDevice(fb, sys)
	out := filepath.Join(t.TempDir(), "shot.png")

	if err := d.Capture(out); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output written despite bad geometry")
	}
}

func TestCaptureHugeStride(t *testing.T) {
	sys := writeSysfs(t, "9223372036854775807\n", "16\n")
	fb := filepath.Join(t.TempDir(), "fb0")
	os.WriteFile(fb, make([]byte, 480*Height), 0644)
	out := filepath.Join(t.TempDir(), "shot.png")

	if err := NewDevice(fb, sys).Capture(out); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestGeometryReadEveryCapture(t *testing.T) {
	d := fakeDevice(t, fbBytes(Width, Height, 480, func(x, y int) uint16 { return 0xFFFF }))
	if _, err := d.Grab(); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(d.Sysfs, "stride"), []byte("bogus"), 0644)
	if _, err := d.Grab(); !errors.Is(err, ErrFormat) {
		t.Fatalf("second grab err = %v, want ErrFormat (geometry must not be cached)", err)
	}
}
