//go:build !darwin && !windows

package osutils

import "os"

func platformWarnings() []string {
	return sessionWarnings(os.Getenv)
}

func sessionWarnings(getenv func(string) string) []string {
	var ws []string
	if getenv("XDG_SESSION_TYPE") == "wayland" || getenv("WAYLAND_DISPLAY") != "" {
		ws = append(ws, "Wayland session: global key events are only seen from X11 (XWayland) windows")
	}
	if getenv("DISPLAY") == "" {
		ws = append(ws, "DISPLAY is not set: the input hook and pointer control need an X server")
	}
	return ws
}
