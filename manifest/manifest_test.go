package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ParsesProjectAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "starling.toml"), `
[project]
name = "demo"
version = "0.1.0"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Project.Name != "demo" || m.Project.Version != "0.1.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("source dirs default = %v, want [src]", m.Source.Dirs)
	}
	want := filepath.Join(m.Dir, ".starling", "chunks.db")
	if got := m.ChunkCachePath(); got != want {
		t.Errorf("chunk cache path = %q, want %q", got, want)
	}
}

func TestLoad_ExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "starling.toml"), `
[project]
name = "demo"

[source]
dirs = ["lib", "app"]
entry = "app/main.sta"
defcompile = true

[cache]
chunks = "cache/chunks.db"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !m.Source.Defcompile {
		t.Error("defcompile should be true")
	}
	paths := m.SourceDirPaths()
	if len(paths) != 2 || filepath.Base(paths[0]) != "lib" || filepath.Base(paths[1]) != "app" {
		t.Errorf("source dir paths = %v", paths)
	}
	if got := m.ChunkCachePath(); got != filepath.Join(m.Dir, "cache", "chunks.db") {
		t.Errorf("chunk cache path = %q", got)
	}
}

func TestFindAndLoad_WalksUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "starling.toml"), "[project]\nname = \"up\"\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m == nil || m.Project.Name != "up" {
		t.Fatalf("manifest = %+v", m)
	}
}

func TestFindAndLoad_NoManifest(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil manifest, got %+v", m)
	}
}

func TestScripts_SortedWithEntryLast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "starling.toml"), `
[project]
name = "demo"

[source]
dirs = ["src"]
entry = "src/main.sta"
`)
	writeFile(t, filepath.Join(dir, "src", "main.sta"), "echo 'main'\n")
	writeFile(t, filepath.Join(dir, "src", "a.sta"), "")
	writeFile(t, filepath.Join(dir, "src", "z.sta"), "")
	writeFile(t, filepath.Join(dir, "src", "notes.txt"), "ignored")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	scripts, err := m.Scripts()
	if err != nil {
		t.Fatalf("scripts: %v", err)
	}
	var names []string
	for _, s := range scripts {
		names = append(names, filepath.Base(s))
	}
	want := []string{"a.sta", "z.sta", "main.sta"}
	if len(names) != len(want) {
		t.Fatalf("scripts = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("scripts[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestScripts_MissingEntryFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "starling.toml"), `
[project]
name = "demo"

[source]
entry = "src/absent.sta"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := m.Scripts(); err == nil {
		t.Error("missing entry script should be an error")
	}
}
