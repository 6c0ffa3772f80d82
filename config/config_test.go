package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BannerTTL != 5*time.Second {
		t.Errorf("BannerTTL = %v, want 5s", cfg.BannerTTL)
	}
	if strings.HasPrefix(cfg.Database, "~") {
		t.Errorf("Database = %q, want expanded path", cfg.Database)
	}
	if len(cfg.ReservedShortcuts) == 0 {
		t.Error("ReservedShortcuts empty by default")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database: ` + filepath.Join(dir, "c.db") + `
banner_ttl: 2s
invoke_timeout: 10s
invoker:
  command: "miio-call {{did}} {{method}} {{params}}"
reserved_shortcuts: ["Ctrl+Q"]
devices:
  - did: "123"
    name: Desk Lamp
    model: yeelink.light.lamp1
  - did: "456"
`
	if err := os.WriteFile(path, []byte(content), FilePermissions); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BannerTTL != 2*time.Second || cfg.InvokeTimeout != 10*time.Second {
		t.Errorf("durations = %v/%v", cfg.BannerTTL, cfg.InvokeTimeout)
	}
	if cfg.Invoker.Command != "miio-call {{did}} {{method}} {{params}}" {
		t.Errorf("Invoker.Command = %q", cfg.Invoker.Command)
	}
	if len(cfg.ReservedShortcuts) != 1 || cfg.ReservedShortcuts[0] != "Ctrl+Q" {
		t.Errorf("ReservedShortcuts = %v", cfg.ReservedShortcuts)
	}
	if d, ok := cfg.Device("123"); !ok || d.Name != "Desk Lamp" {
		t.Errorf("Device(123) = %+v, %v", d, ok)
	}
	if d, _ := cfg.Device("456"); d.Title() != "456" {
		t.Errorf("Title() = %q, want did fallback", d.Title())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "devices: [",
		"duplicate did": "devices:\n  - did: a\n  - did: a\n",
		"missing did":   "devices:\n  - name: x\n",
		"zero ttl":      "banner_ttl: 0s\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			os.WriteFile(path, []byte(content), FilePermissions)
			if _, err := Load(path); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Invoker.Command = "x {{did}} {{method}}"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Invoker.Command != cfg.Invoker.Command || loaded.BannerTTL != cfg.BannerTTL {
		t.Errorf("Load() = %+v", loaded)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandHome("~/x/y")
	if err != nil || got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandHome() = %q, %v", got, err)
	}
	if got, _ := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
}
