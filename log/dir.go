package log

import (
	"os"
	"path/filepath"
)

// sdcardLogDir is the firmware's log directory on the SD card.
var sdcardLogDir = "/mnt/SDCARD/.tmp_update/logs"

func getDefaultDir() (string, error) {
	if fi, err := os.Stat(filepath.Dir(sdcardLogDir)); err == nil && fi.IsDir() {
		return sdcardLogDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	// Off-device: XDG_CONFIG_HOME
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "hotkeyd", "logs"), nil
}
