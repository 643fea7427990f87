package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileRepository stores the user mapping as a single JSON file. A missing
// file is an empty store, not an error.
type FileRepository struct {
	path string
}

// NewFileRepository constructs a FileRepository at the given path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads the full mapping from disk. Returns an empty map when the
// file does not exist yet.
func (r *FileRepository) Load(_ context.Context) (map[string]User, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]User{}, nil
		}
		return nil, fmt.Errorf("reading user data file %s: %w", r.path, err)
	}

	if len(b) == 0 {
		return map[string]User{}, nil
	}

	var users map[string]User
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("parsing user data file %s: %w", r.path, err)
	}
	if users == nil {
		users = map[string]User{}
	}
	return users, nil
}

// Save rewrites the full mapping. The write goes to a temp file in the
// same directory followed by a rename, so a failed write never leaves a
// truncated store behind.
func (r *FileRepository) Save(_ context.Context, users map[string]User) error {
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user data: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp user data file in %s: %w", dir, err)
	}

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing user data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing temp user data file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing user data file %s: %w", r.path, err)
	}
	return nil
}
