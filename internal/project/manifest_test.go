package project

import (
	"os"
	"path/filepath"
	"testing"

	"tyrb/internal/diag"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tyrb.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"

[server]
jobs = 4
max_diagnostics = 50
source_roots = ["lib", "app"]
silence = [5002]
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("name = %q", m.Config.Package.Name)
	}
	if m.Config.Server.Jobs != 4 || m.Config.Server.MaxDiagnostics != 50 {
		t.Fatalf("server section broken: %+v", m.Config.Server)
	}
	if len(m.Config.Server.SourceRoots) != 2 {
		t.Fatalf("source roots: %v", m.Config.Server.SourceRoots)
	}
	codes := m.Config.Server.SilencedCodes()
	if len(codes) != 1 || codes[0] != diag.TypeUnknownMethod {
		t.Fatalf("silenced codes: %v", codes)
	}
	if m.Root != dir {
		t.Fatalf("root = %q, want %q", m.Root, dir)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[package]\nname = \"x\"\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: %v, %v", ok, err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("found %q, want under %q", path, dir)
	}
}

func TestLoadFromDirWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if m.Path != "" {
		t.Fatal("expected defaults when no manifest exists")
	}
	if m.Config.Server.Jobs != 0 {
		t.Fatal("defaults should be zero values")
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "not toml [")
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
