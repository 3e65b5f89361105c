package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileExt is the extension of persisted profile records.
const FileExt = ".json"

// StoragePath derives the persisted location of a profile from its name.
// A leading dot is refused because Load skips hidden files.
func StoragePath(dir, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", invalid("name %q cannot be used as a file name", name)
	}
	return filepath.Join(dir, name+FileExt), nil
}

// Create validates data, persists it as a new record in dir and returns the
// resulting profile. The record is written to a temporary file and linked
// into place, so an existing record is never overwritten and a failed create
// leaves no file behind.
func Create(data []byte, dir string, opts Options) (*Profile, error) {
	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	path, err := StoragePath(dir, rec.Name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}

	if err := writeExclusive(path, formatRecord(rec.Raw)); err != nil {
		return nil, err
	}

	p := Parse(rec, opts)
	p.Path = path
	return p, nil
}

// Update rewrites the record of p with data and returns a new profile for
// the written record. The storage location does not change, and p is left
// as it was.
func Update(p *Profile, data []byte, opts Options) (*Profile, error) {
	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, fmt.Errorf("profile %q has no storage location", p.Name)
	}
	updated := Parse(rec, opts)
	updated.Path = p.Path
	if err := writeAtomic(p.Path, formatRecord(rec.Raw)); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the persisted record of p. Protected locations (the
// profile directory itself, the filesystem root) are never removed.
func Delete(p *Profile, protected ...string) error {
	if p.Path == "" {
		return nil
	}
	path := filepath.Clean(p.Path)
	roots := append([]string{string(filepath.Separator)}, protected...)
	for _, dir := range roots {
		if dir != "" && path == filepath.Clean(dir) {
			return fmt.Errorf("refusing to delete protected location %s", path)
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func formatRecord(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return append([]byte(nil), raw...)
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// writeTemp writes data to a synced temporary file next to path.
func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".macro-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmpName, nil
}

// writeAtomic replaces path with data (temp file + rename).
func writeAtomic(path string, data []byte) error {
	tmpName, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// writeExclusive creates path with data, failing with ErrAlreadyExists if it
// exists. Filesystems without hard links fall back to an O_EXCL create that
// is removed again if the write fails.
func writeExclusive(path string, data []byte) error {
	tmpName, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)

	err = os.Link(tmpName, path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
