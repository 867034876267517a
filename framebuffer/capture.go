package framebuffer

import (
	"fmt"
	"image"
	"os"
)

// Device is a framebuffer node plus the sysfs directory describing it.
type Device struct {
	Path   string // pixel memory, e.g. /dev/fb0
	Sysfs  string // attribute directory, e.g. /sys/class/graphics/fb0
	Width  int
	Height int
}

// NewDevice returns the handheld's primary framebuffer.
func NewDevice(path, sysfs string) *Device {
	return &Device{Path: path, Sysfs: sysfs, Width: Width, Height: Height}
}

// Grab reads the current geometry and pixel memory and decodes them.
func (d *Device) Grab() (*image.NRGBA, error) {
	g, err := ReadGeometry(d.Sysfs)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("reading framebuffer: %w", err)
	}
	return Decode(data, g, d.Width, d.Height), nil
}

// Capture grabs the display, rotates it upright and writes a PNG to out.
func (d *Device) Capture(out string) error {
	img, err := d.Grab()
	if err != nil {
		return err
	}
	return Encode(out, Rotate(img))
}
