// Package migrations applies the embedded SQL schema migrations.
package migrations

import (
	"cmp"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
)

//go:embed sql/*.sql
var embedded embed.FS

// Embedded returns the migrations shipped with the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Direction of a migration file.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// fileName matches 000001_init.up.sql.
var fileName = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)

// Migration is one SQL file of the schema history.
type Migration struct {
	Version   string
	Name      string
	Direction string
	FilePath  string
}

func (m Migration) String() string {
	return fmt.Sprintf("%s_%s.%s.sql", m.Version, m.Name, m.Direction)
}

// Load lists the migrations of one direction at the root of fsys,
// ordered by version. Other files are ignored.
func Load(fsys fs.FS, direction string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileName.FindStringSubmatch(e.Name())
		if m == nil || m[3] != direction {
			continue
		}
		out = append(out, Migration{Version: m[1], Name: m[2], Direction: direction, FilePath: e.Name()})
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// ReadContent returns the SQL of m.
func ReadContent(fsys fs.FS, m Migration) ([]byte, error) {
	return fs.ReadFile(fsys, m.FilePath)
}
