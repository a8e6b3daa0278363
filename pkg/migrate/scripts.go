package migrate

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed sql/*.sql
var embedded embed.FS

// EmbeddedScripts returns the schema scripts shipped with this module.
func EmbeddedScripts() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Script is one versioned schema script, named NNN_description.sql
type Script struct {
	Version int
	Name    string
}

var scriptName = regexp.MustCompile(`^(\d{3})_[^/]+\.sql$`)

// discover lists the scripts at the root of fsys in ascending version
// order. Files not following the naming scheme are ignored.
func discover(fsys fs.FS) ([]Script, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read scripts: %w", err)
	}

	var scripts []Script
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := scriptName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, _ := strconv.Atoi(m[1])
		if prev, ok := seen[v]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, prev, e.Name())
		}
		seen[v] = e.Name()
		scripts = append(scripts, Script{Version: v, Name: e.Name()})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}

func pendingAfter(scripts []Script, current int) []Script {
	var pending []Script
	for _, s := range scripts {
		if s.Version > current {
			pending = append(pending, s)
		}
	}
	return pending
}

func latestOf(scripts []Script) int {
	if len(scripts) == 0 {
		return 0
	}
	return scripts[len(scripts)-1].Version
}
