// Package store holds the loaded macro profiles of the device, one
// persisted record per profile.
package store

import (
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marcus/macropad/internal/profile"
)

// Store is the ordered collection of valid profiles, unique by name. It is
// not safe for concurrent use; the runtime loop owns it.
type Store struct {
	dir      string
	opts     profile.Options
	logger   *slog.Logger
	profiles []*profile.Profile
	revision uint64
}

// Option configures a Store.
type Option func(*Store)

// WithOptions sets the profile parse options.
func WithOptions(opts profile.Options) Option {
	return func(s *Store) { s.opts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns an empty store persisting into dir.
func New(dir string, options ...Option) *Store {
	s := &Store{
		dir:    dir,
		opts:   profile.DefaultOptions(),
		logger: slog.Default(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Load creates a store from every record in dir. Invalid records and
// records whose name is already taken are skipped.
func Load(dir string, options ...Option) (*Store, error) {
	s := New(dir, options...)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), profile.FileExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := profile.Load(path, s.opts)
		if err != nil {
			s.logger.Debug("skip profile record", "path", path, "err", err)
			continue
		}
		if s.Index(p.Name) >= 0 {
			s.logger.Warn("skip duplicate profile", "name", p.Name, "path", path)
			continue
		}
		s.profiles = append(s.profiles, p)
	}

	s.logger.Info("profiles loaded", "dir", dir, "count", len(s.profiles))
	return s, nil
}

// Dir returns the directory profiles are persisted in.
func (s *Store) Dir() string { return s.dir }

// Options returns the profile parse options.
func (s *Store) Options() profile.Options { return s.opts }

// Len returns the number of profiles.
func (s *Store) Len() int { return len(s.profiles) }

// Revision changes every time the collection is mutated.
func (s *Store) Revision() uint64 { return s.revision }

// At returns the profile at index i, or nil when out of range.
func (s *Store) At(i int) *profile.Profile {
	if i < 0 || i >= len(s.profiles) {
		return nil
	}
	return s.profiles[i]
}

// Index returns the position of the named profile, or -1.
func (s *Store) Index(name string) int {
	for i, p := range s.profiles {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Find returns the named profile.
func (s *Store) Find(name string) (*profile.Profile, bool) {
	i := s.Index(name)
	if i < 0 {
		return nil, false
	}
	return s.profiles[i], true
}

// Insert appends p. The caller checks name uniqueness.
func (s *Store) Insert(p *profile.Profile) {
	s.profiles = append(s.profiles, p)
	s.revision++
}

// Replace swaps the named profile for p, keeping its position.
func (s *Store) Replace(name string, p *profile.Profile) error {
	i := s.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", profile.ErrNotFound, name)
	}
	s.profiles[i] = p
	s.revision++
	return nil
}

// Remove deletes the persisted record of the named profile and evicts it.
// If the record cannot be deleted the store is left unchanged.
func (s *Store) Remove(name string) error {
	i := s.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", profile.ErrNotFound, name)
	}
	if err := profile.Delete(s.profiles[i], s.dir); err != nil {
		return err
	}
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	s.revision++
	return nil
}

// Create persists a new profile from a raw record and inserts it.
func (s *Store) Create(data []byte) (*profile.Profile, error) {
	rec, err := profile.Decode(data)
	if err != nil {
		return nil, err
	}
	if s.Index(rec.Name) >= 0 {
		return nil, fmt.Errorf("%w: profile %q", profile.ErrAlreadyExists, rec.Name)
	}
	p, err := profile.Create(data, s.dir, s.opts)
	if err != nil {
		return nil, err
	}
	s.Insert(p)
	return p, nil
}

// Update rewrites the profile named in the raw record and replaces it with
// the reloaded value.
func (s *Store) Update(data []byte) (*profile.Profile, error) {
	rec, err := profile.Decode(data)
	if err != nil {
		return nil, err
	}
	old, ok := s.Find(rec.Name)
	if !ok {
		return nil, fmt.Errorf("%w: profile %q", profile.ErrNotFound, rec.Name)
	}
	p, err := profile.Update(old, data, s.opts)
	if err != nil {
		return nil, err
	}
	if err := s.Replace(rec.Name, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Names yields profile names in store order. Each call walks the current
// collection again.
func (s *Store) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, p := range s.profiles {
			if !yield(p.Name) {
				return
			}
		}
	}
}

// All yields every profile with its index.
func (s *Store) All() iter.Seq2[int, *profile.Profile] {
	return func(yield func(int, *profile.Profile) bool) {
		for i, p := range s.profiles {
			if !yield(i, p) {
				return
			}
		}
	}
}
