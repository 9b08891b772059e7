package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// versionLayout keeps file names in apply order when sorted
const versionLayout = "20060102150405"

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Pair is the up and down file of one migration
type Pair struct {
	Version string
	Up      string
	Down    string
}

// Slug turns a free-form migration name into its file name suffix
func Slug(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// Create writes an empty migration pair into dir, versioned by now in UTC.
// Existing files are never overwritten.
func Create(dir, name, description string, now time.Time) (Pair, error) {
	slug := Slug(name)
	if slug == "" {
		return Pair{}, fmt.Errorf("migration name %q has no letters or digits", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Pair{}, fmt.Errorf("create migrations dir: %w", err)
	}

	version := now.UTC().Format(versionLayout)
	base := filepath.Join(dir, version+"_"+slug)
	p := Pair{Version: version, Up: base + ".up.sql", Down: base + ".down.sql"}

	header := "-- " + slug
	if description != "" {
		header += ": " + description
	}
	if err := writeNew(p.Up, header+"\n\n"); err != nil {
		return Pair{}, err
	}
	if err := writeNew(p.Down, header+" (rollback)\n\n"); err != nil {
		_ = os.Remove(p.Up)
		return Pair{}, err
	}
	return p, nil
}

func writeNew(path, body string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	_, err = f.WriteString(body)
	return errors.Join(err, f.Close())
}

// List returns the migration base names at the root of fsys in apply order.
// An up file without its down file is an error, so a half-written migration
// is caught before it reaches a database.
func List(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ups))
	var missing []string
	for _, up := range ups {
		base := strings.TrimSuffix(up, ".up.sql")
		if _, err := fs.Stat(fsys, base+".down.sql"); err != nil {
			missing = append(missing, base)
			continue
		}
		names = append(names, base)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("migrations without a down file: %s", strings.Join(missing, ", "))
	}
	return names, nil
}
