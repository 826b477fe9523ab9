package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome, oldExe := homeDir, executable
	homeDir = func() (string, error) { return home, nil }
	executable = func() (string, error) { return "/opt/autokeybind/bin/autokeybind", nil }
	t.Cleanup(func() { homeDir, executable = oldHome, oldExe })
	t.Setenv("XDG_CONFIG_HOME", "")
	return home
}

func TestMacLaunchAgent(t *testing.T) {
	home := fakeEnv(t)

	if isEnabledMac() {
		t.Fatal("enabled before Enable")
	}
	if err := enableMac(); err != nil {
		t.Fatalf("enableMac() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(home, "Library", "LaunchAgents", "com.autokeybind.agent.plist"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<string>com.autokeybind.agent</string>", "<string>/opt/autokeybind/bin/autokeybind</string>", "<string>-headless</string>"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("plist missing %s", want)
		}
	}
	if !isEnabledMac() {
		t.Error("not enabled after Enable")
	}

	if err := disableMac(); err != nil {
		t.Fatal(err)
	}
	if isEnabledMac() {
		t.Error("still enabled after Disable")
	}
	if err := disableMac(); err != nil {
		t.Errorf("second disable = %v", err)
	}
}

func TestXDGAutostart(t *testing.T) {
	home := fakeEnv(t)

	if err := enableXDG(); err != nil {
		t.Fatalf("enableXDG() error = %v", err)
	}
	path := filepath.Join(home, ".config", "autostart", "autokeybind.desktop")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `Exec="/opt/autokeybind/bin/autokeybind" -headless`) {
		t.Errorf("desktop entry = %s", data)
	}
	if !isEnabledXDG() {
		t.Error("not enabled")
	}
	if err := disableXDG(); err != nil {
		t.Fatal(err)
	}
	if isEnabledXDG() {
		t.Error("still enabled")
	}
}

func TestXDGConfigHome(t *testing.T) {
	fakeEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	p, err := xdgEntryPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "autostart", "autokeybind.desktop"); p != want {
		t.Errorf("xdgEntryPath() = %q, want %q", p, want)
	}
}
