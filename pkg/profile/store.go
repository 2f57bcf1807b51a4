package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store persists profiles as one JSON file per profile in a directory.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore returns a store over dir. A nil logger uses slog.Default.
func NewStore(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}
}

// LoadAll reads every *.json file in the directory. Files that fail to
// parse are skipped with a warning; a missing directory yields an empty
// map.
func (s *Store) LoadAll() (map[string]Profile, error) {
	profiles := make(map[string]Profile)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return profiles, nil
		}
		return nil, fmt.Errorf("read profile dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("profile file unreadable", slog.String("path", path), slog.Any("error", err))
			continue
		}
		p, err := Decode(data)
		if err != nil {
			s.log.Warn("profile file malformed", slog.String("path", path), slog.Any("error", err))
			continue
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(e.Name(), ".json")
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Save writes one profile to <dir>/<name>.json, creating the directory if
// needed.
func (s *Store) Save(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("save profile: empty name")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("encode profile %q: %w", p.Name, err)
	}
	path := filepath.Join(s.dir, p.Name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile %q: %w", p.Name, err)
	}
	return nil
}

// Delete removes a saved profile file. Missing files are not an error.
func (s *Store) Delete(name string) error {
	err := os.Remove(filepath.Join(s.dir, name+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	return nil
}
