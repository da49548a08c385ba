package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	path := writeManifest(t, `
[package]
name = "corelib"

[target]
triple = "x86_64-linux-gnu"

[build]
jobs = 4

[layout]
log = "discovery.mp"
fixed = ["shared/framework.mp"]
out = "out/layouts.mp"
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dir := filepath.Dir(path)
	if m.Name != "corelib" || m.Jobs != 4 || m.Triple != "x86_64-linux-gnu" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	if m.Log != filepath.Join(dir, "discovery.mp") {
		t.Fatalf("log not resolved: %q", m.Log)
	}
	if len(m.Fixed) != 1 || m.Fixed[0] != filepath.Join(dir, "shared", "framework.mp") {
		t.Fatalf("fixed not resolved: %v", m.Fixed)
	}
	if m.Out != filepath.Join(dir, "out", "layouts.mp") {
		t.Fatalf("out not resolved: %q", m.Out)
	}
}

func TestLoadRequiresPackageSection(t *testing.T) {
	path := writeManifest(t, `
[layout]
log = "discovery.mp"
`)
	if _, err := Load(path); !errors.Is(err, ErrPackageSectionMissing) {
		t.Fatalf("expected missing [package] error, got %v", err)
	}
}

func TestLoadRequiresDiscoveryLog(t *testing.T) {
	path := writeManifest(t, `
[package]
name = "corelib"
`)
	if _, err := Load(path); !errors.Is(err, ErrLayoutLogMissing) {
		t.Fatalf("expected missing [layout].log error, got %v", err)
	}
}
