package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"conference/model"
)

// Store keeps the latest snapshot of a conference. Errors are returned as is;
// callers treat them as fatal.
type Store interface {
	Save(ctx context.Context, doc *Document) error
	Load(ctx context.Context) (*Document, error)
}

// FileStore writes the snapshot to a single JSON file, replacing it atomically.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Save(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

func (f *FileStore) Load(ctx context.Context) (*Document, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return &doc, nil
}

// LoadConference reads and decodes the stored snapshot.
func LoadConference(ctx context.Context, s Store) (*model.Conference, *Document, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	c, err := Decode(doc)
	if err != nil {
		return nil, nil, err
	}
	return c, doc, nil
}
