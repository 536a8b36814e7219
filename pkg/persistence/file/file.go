// Package file provides the file-system Store implementation: one canvas
// document per .canvas JSON file under a root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/persistence"
)

// Store implements persistence.Store on the file system. The workspace key
// is the document path relative to the root.
type Store struct {
	root string
}

// NewStore creates a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: strings.TrimPrefix(root, "file://")}
}

// Load reads, schema-validates and decodes the document for a key.
func (s *Store) Load(_ context.Context, key string) (*canvas.Document, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, persistence.NewDocumentError("Load", key, err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, persistence.NewDocumentError("Load", key, persistence.ErrDocumentNotFound)
	}

	if err != nil {
		return nil, persistence.NewDocumentError("Load", key, err)
	}

	doc, err := decode(data)
	if err != nil {
		return nil, persistence.NewDocumentError("Load", key, err)
	}

	return doc, nil
}

// Save writes the document atomically: marshal, write a sibling temp file,
// rename over the target.
func (s *Store) Save(_ context.Context, key string, doc *canvas.Document) error {
	path, err := s.resolve(key)
	if err != nil {
		return persistence.NewDocumentError("Save", key, err)
	}

	data, err := encode(doc)
	if err != nil {
		return persistence.NewDocumentError("Save", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return persistence.NewDocumentError("Save", key, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return persistence.NewDocumentError("Save", key, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return persistence.NewDocumentError("Save", key, err)
	}

	return nil
}

// ReadAttachment returns the content of a file referenced by a file node.
func (s *Store) ReadAttachment(_ context.Context, path string) (string, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(resolved)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", persistence.ErrAttachmentNotFound, path)
	}

	if err != nil {
		return "", fmt.Errorf("failed to read attachment %s: %w", path, err)
	}

	return string(data), nil
}

// HealthCheck verifies the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("store root %s unusable: %w", s.root, err)
	}

	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

// resolve joins a key to the root and refuses escapes.
func (s *Store) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty document key")
	}

	path := filepath.Join(s.root, filepath.Clean("/"+key))
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("key %q escapes store root", key)
	}

	return path, nil
}

func decode(data []byte) (*canvas.Document, error) {
	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("%w: %v", persistence.ErrInvalidDocument, err)
	}

	var doc canvas.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", persistence.ErrInvalidDocument, err)
	}

	seen := make(map[string]bool, len(doc.Nodes))

	for _, n := range doc.Nodes {
		if seen[n.ID] {
			return nil, fmt.Errorf("%w: duplicate node id %s", persistence.ErrInvalidDocument, n.ID)
		}

		seen[n.ID] = true
	}

	if doc.Nodes == nil {
		doc.Nodes = []*canvas.Node{}
	}

	if doc.Edges == nil {
		doc.Edges = []*canvas.Edge{}
	}

	return &doc, nil
}

func encode(doc *canvas.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}
