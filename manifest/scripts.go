package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScriptExt is the file extension for Starling scripts.
const ScriptExt = ".sta"

// Scripts returns the project's script files in load order: each source
// directory's scripts sorted by name, with the entry script (when
// configured) moved to the end so the classes it uses are registered
// first.
func (m *Manifest) Scripts() ([]string, error) {
	var entry string
	if m.Source.Entry != "" {
		entry = filepath.Join(m.Dir, m.Source.Entry)
	}

	var scripts []string
	for _, dir := range m.SourceDirPaths() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading source dir %s: %w", dir, err)
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ScriptExt) {
				continue
			}
			names = append(names, filepath.Join(dir, e.Name()))
		}
		sort.Strings(names)
		scripts = append(scripts, names...)
	}

	if entry == "" {
		return scripts, nil
	}
	out := scripts[:0]
	found := false
	for _, s := range scripts {
		if s == entry {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		if _, err := os.Stat(entry); err != nil {
			return nil, fmt.Errorf("entry script %s: %w", m.Source.Entry, err)
		}
	}
	return append(out, entry), nil
}
