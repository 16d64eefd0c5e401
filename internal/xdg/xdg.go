// Package xdg resolves XDG Base Directory locations for nodetel.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "nodetel"

// ConfigHome returns $XDG_CONFIG_HOME, falling back to ~/.config.
func ConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// DataHome returns $XDG_DATA_HOME, falling back to ~/.local/share.
func DataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share")
}

func ConfigDir() string {
	return filepath.Join(ConfigHome(), appName)
}

// DataDir holds the KV store: the hardware cache, liveness and node id.
func DataDir() string {
	return filepath.Join(DataHome(), appName)
}
