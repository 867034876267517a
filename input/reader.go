package input

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the handheld's gpio-keys node.
const DefaultDevice = "/dev/input/event0"

// Reader reads key transition events from one evdev node. The node is not
// grabbed: the foreground game must keep receiving the same keys.
type Reader struct {
	f    *os.File
	path string
	dec  Decoder
	buf  []byte
}

// Open opens an input device for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input device %s: %w", path, err)
	}
	return &Reader{
		f:    f,
		path: path,
		buf:  make([]byte, EventSize*64),
	}, nil
}

// Path returns the device path.
func (r *Reader) Path() string { return r.path }

// Next blocks until at least one complete event is available and returns
// the batch in arrival order. Any error is unrecoverable for this Reader.
func (r *Reader) Next() ([]Event, error) {
	for {
		n, err := r.f.Read(r.buf)
		if err != nil {
			return nil, fmt.Errorf("reading input device %s: %w", r.path, err)
		}
		if evs := r.dec.Feed(r.buf[:n]); len(evs) > 0 {
			return evs, nil
		}
	}
}

// Poll waits up to timeout for the device to become readable.
func (r *Reader) Poll(timeout time.Duration) (bool, error) {
	pfd := []unix.PollFd{{Fd: int32(r.f.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, fmt.Errorf("polling input device %s: %w", r.path, err)
	}
	return n > 0 && pfd[0].Revents&unix.POLLIN != 0, nil
}

// Close releases the device.
func (r *Reader) Close() error {
	return r.f.Close()
}

// DeviceInfo describes one /dev/input/event* node.
type DeviceInfo struct {
	Path    string
	Name    string
	HasKeys bool
}

// ListDevices enumerates event nodes under devDir, reading names and key
// capabilities from sysDir (normally /sys/class/input).
func ListDevices(devDir, sysDir string) ([]DeviceInfo, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var out []DeviceInfo
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		info := DeviceInfo{Path: filepath.Join(devDir, e.Name())}
		if data, err := os.ReadFile(filepath.Join(sysDir, e.Name(), "device", "name")); err == nil {
			info.Name = strings.TrimSpace(string(data))
		}
		if data, err := os.ReadFile(filepath.Join(sysDir, e.Name(), "device", "capabilities", "key")); err == nil {
			caps := strings.TrimSpace(string(data))
			info.HasKeys = caps != "" && caps != "0"
		}
		out = append(out, info)
	}
	return out, nil
}
