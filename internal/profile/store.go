package profile

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store owns every profile and binding plus the active profile pointer.
// One lock guards all of it; binding maps are replaced, never edited in
// place, so a snapshot handed to a reader stays consistent.
type Store struct {
	mu       sync.RWMutex
	path     string
	profiles map[string]map[string]Binding
	active   string

	// saveMu serializes disk writes so the newest state always lands last.
	saveMu    sync.Mutex
	lastSaved []byte

	cbMu      sync.Mutex
	onChanged []func()
}

// NewStore creates a store backed by the JSON file at path. The store starts
// with a single empty Default profile until Load is called.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		profiles: defaultProfiles(),
		active:   DefaultProfileName,
	}
}

func defaultProfiles() map[string]map[string]Binding {
	return map[string]map[string]Binding{DefaultProfileName: {}}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the profiles file. A missing or unparsable file falls back to a
// single empty Default profile. The file is always rewritten afterwards so it
// carries the canonical, current shape. Only a failure to write is returned.
func (s *Store) Load() error {
	profiles, err := s.read()
	if err != nil {
		slog.Warn("[profile] starting from default profiles", "path", s.path, "reason", err)
	}
	if len(profiles) == 0 {
		profiles = defaultProfiles()
	}

	s.mu.Lock()
	s.profiles = profiles
	s.active = pickActive(profiles, s.active)
	active := s.active
	s.mu.Unlock()

	slog.Info("[profile] loaded", "path", s.path, "profiles", len(profiles), "active", active)
	s.notify()

	s.saveMu.Lock()
	s.lastSaved = nil
	s.saveMu.Unlock()
	return s.Save()
}

func (s *Store) read() (map[string]map[string]Binding, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	profiles, err := decodeProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return profiles, nil
}

// pickActive keeps current when it still exists, else prefers Default, else
// the first name in sorted order.
func pickActive(profiles map[string]map[string]Binding, current string) string {
	if _, ok := profiles[current]; ok && current != "" {
		return current
	}
	if _, ok := profiles[DefaultProfileName]; ok {
		return DefaultProfileName
	}
	names := sortedNames(profiles)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func sortedNames(profiles map[string]map[string]Binding) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes every profile to disk atomically.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := encodeProfiles(s.profiles)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}

	if bytes.Equal(data, s.lastSaved) {
		return nil
	}
	if err := atomicWrite(s.path, data); err != nil {
		return err
	}
	s.lastSaved = data
	slog.Debug("[profile] saved", "path", s.path, "bytes", len(data))
	return nil
}

// atomicWrite writes data to a temp file in the same directory and renames it
// over path, so readers never see a partial file.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save profiles: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".profiles.json.tmp.*")
	if err != nil {
		return fmt.Errorf("save profiles: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Warn("[profile] failed to remove temp file", "path", tmpPath, "error", rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("save profiles: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("save profiles: sync: %w", err)
	}
	err = tmp.Close()
	tmp = nil
	if err != nil {
		return fmt.Errorf("save profiles: close: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("save profiles: rename: %w", err)
	}
	return nil
}

// RegisterChangeCallback adds fn to the callbacks run after every change.
// Callbacks run on the goroutine that made the change.
func (s *Store) RegisterChangeCallback(fn func()) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onChanged = append(s.onChanged, fn)
}

func (s *Store) notify() {
	s.cbMu.Lock()
	fns := make([]func(), len(s.onChanged))
	copy(fns, s.onChanged)
	s.cbMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// commit persists and notifies after a successful mutation.
func (s *Store) commit() error {
	s.notify()
	if err := s.Save(); err != nil {
		slog.Error("[profile] save failed", "path", s.path, "error", err)
		return err
	}
	return nil
}

// Active returns the active profile name.
func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive makes name the active profile.
func (s *Store) SetActive(name string) error {
	s.mu.Lock()
	if _, ok := s.profiles[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	changed := s.active != name
	s.active = name
	s.mu.Unlock()

	if changed {
		slog.Info("[profile] active profile changed", "profile", name)
		s.notify()
	}
	return nil
}

// Profiles returns all profile names, sorted.
func (s *Store) Profiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedNames(s.profiles)
}

// Bindings returns a copy of the bindings of a profile.
func (s *Store) Bindings(name string) (map[string]Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	binds, ok := s.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	out := make(map[string]Binding, len(binds))
	for k, v := range binds {
		out[k] = v
	}
	return out, nil
}

// Lookup finds the binding for combo in the active profile. The exact combo
// is tried first, then its lowercase form for single-character bindings saved
// before names were uppercased.
//
// The lowercase retry can match an unrelated lowercase binding; it is kept
// for compatibility with existing files.
func (s *Store) Lookup(combo string) (Binding, bool) {
	if combo == "" {
		return Binding{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	binds, ok := s.profiles[s.active]
	if !ok {
		return Binding{}, false
	}
	if b, ok := binds[combo]; ok {
		return b, true
	}
	if b, ok := binds[strings.ToLower(combo)]; ok {
		return b, true
	}
	return Binding{}, false
}

// withBindings replaces the bindings of a profile with the result of edit,
// which receives a private copy. The caller must hold s.mu.
func (s *Store) withBindings(name string, edit func(map[string]Binding) error) error {
	binds, ok := s.profiles[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	next := make(map[string]Binding, len(binds)+1)
	for k, v := range binds {
		next[k] = v
	}
	if err := edit(next); err != nil {
		return err
	}
	s.profiles[name] = next
	return nil
}

func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.commit()
}

// SetBinding creates or replaces the binding for key in a profile.
func (s *Store) SetBinding(name, key string, kind ActionKind, at Coord) error {
	if key == "" {
		return ErrEmptyCombo
	}
	if !kind.Valid() {
		kind = DefaultKind
	}
	err := s.mutate(func() error {
		return s.withBindings(name, func(b map[string]Binding) error {
			b[key] = Binding{Coords: at, Kind: kind}
			return nil
		})
	})
	if err == nil {
		slog.Info("[profile] binding saved", "profile", name, "key", key, "kind", kind, "x", at.X, "y", at.Y)
	}
	return err
}

// SetBindingKind changes only the action kind of an existing binding.
func (s *Store) SetBindingKind(name, key string, kind ActionKind) error {
	if !kind.Valid() {
		kind = DefaultKind
	}
	return s.mutate(func() error {
		return s.withBindings(name, func(b map[string]Binding) error {
			cur, ok := b[key]
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownBinding, key)
			}
			cur.Kind = kind
			b[key] = cur
			return nil
		})
	})
}

// DeleteBinding removes key from a profile.
func (s *Store) DeleteBinding(name, key string) error {
	return s.mutate(func() error {
		return s.withBindings(name, func(b map[string]Binding) error {
			if _, ok := b[key]; !ok {
				return fmt.Errorf("%w: %q", ErrUnknownBinding, key)
			}
			delete(b, key)
			return nil
		})
	})
}

// ClearBindings removes every binding from a profile.
func (s *Store) ClearBindings(name string) error {
	return s.mutate(func() error {
		if _, ok := s.profiles[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		s.profiles[name] = map[string]Binding{}
		return nil
	})
}

// CreateProfile adds an empty profile.
func (s *Store) CreateProfile(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return s.mutate(func() error {
		if _, ok := s.profiles[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateProfile, name)
		}
		s.profiles[name] = map[string]Binding{}
		return nil
	})
}

// RenameProfile renames a profile, keeping its bindings and following it with
// the active pointer.
func (s *Store) RenameProfile(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	if oldName == newName {
		return nil
	}
	return s.mutate(func() error {
		binds, ok := s.profiles[oldName]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProfile, oldName)
		}
		if _, ok := s.profiles[newName]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateProfile, newName)
		}
		s.profiles[newName] = binds
		delete(s.profiles, oldName)
		if s.active == oldName {
			s.active = newName
		}
		return nil
	})
}

// DeleteProfile removes a profile. The last remaining profile cannot be
// deleted. Deleting the active profile repoints it at a remaining one.
func (s *Store) DeleteProfile(name string) error {
	return s.mutate(func() error {
		if _, ok := s.profiles[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		if len(s.profiles) == 1 {
			return ErrLastProfile
		}
		delete(s.profiles, name)
		if s.active == name {
			s.active = pickActive(s.profiles, "")
		}
		return nil
	})
}
