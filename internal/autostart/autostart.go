// Package autostart starts the app when the user logs in.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

const (
	label       = "com.autokeybind.agent"
	desktopName = "autokeybind.desktop"
)

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>-headless</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=AutoKeybind
Comment=Key bindings for mouse clicks
Exec="{{.ExecutablePath}}" -headless
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

// overridable in tests
var (
	homeDir    = os.UserHomeDir
	executable = os.Executable
)

type launchInfo struct {
	Label          string
	ExecutablePath string
}

// Enable enables auto-start on login
func Enable() error {
	switch runtime.GOOS {
	case "darwin":
		return enableMac()
	case "windows":
		return enableWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return enableXDG()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable disables auto-start on login
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return disableMac()
	case "windows":
		return disableWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return disableXDG()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return isEnabledMac()
	case "windows":
		return isEnabledWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return isEnabledXDG()
	default:
		return false
	}
}

// Set enables or disables auto-start to match on.
func Set(on bool) error {
	if on {
		return Enable()
	}
	return Disable()
}

func writeTemplate(path, text string) error {
	execPath, err := executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, launchInfo{Label: label, ExecutablePath: execPath})
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// macOS implementation
func macPlistPath() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

func enableMac() error {
	p, err := macPlistPath()
	if err != nil {
		return err
	}
	return writeTemplate(p, macLaunchAgentPlist)
}

func disableMac() error {
	p, err := macPlistPath()
	if err != nil {
		return err
	}
	return removeFile(p)
}

func isEnabledMac() bool {
	p, err := macPlistPath()
	return err == nil && exists(p)
}

// XDG autostart (Linux and BSD desktops)
func xdgEntryPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := homeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "autostart", desktopName), nil
}

func enableXDG() error {
	p, err := xdgEntryPath()
	if err != nil {
		return err
	}
	return writeTemplate(p, xdgDesktopEntry)
}

func disableXDG() error {
	p, err := xdgEntryPath()
	if err != nil {
		return err
	}
	return removeFile(p)
}

func isEnabledXDG() bool {
	p, err := xdgEntryPath()
	return err == nil && exists(p)
}
