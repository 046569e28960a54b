package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specbridge/specbridge-backend/internal/platform/logger"
)

// Store persists raw document text as opaque blobs. The graph store is the
// source of truth; this cache is best-effort and failures here must never
// roll back a committed reconciliation.
type Store interface {
	Write(ctx context.Context, tenant, project, slug string, data []byte) error
	Read(ctx context.Context, tenant, project, slug string) ([]byte, error)
}

type localStore struct {
	root string
	log  *logger.Logger
}

func NewLocalStore(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("filestore: logger required")
	}
	root := strings.TrimSpace(os.Getenv("DOCUMENT_STORE_DIR"))
	if root == "" {
		root = "data/documents"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	return &localStore{
		root: root,
		log:  log.With("service", "FileStore"),
	}, nil
}

func (s *localStore) Write(ctx context.Context, tenant, project, slug string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.blobPath(tenant, project, slug)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("filestore: create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("filestore: write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("filestore: replace blob: %w", err)
	}
	return nil
}

func (s *localStore) Read(ctx context.Context, tenant, project, slug string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.blobPath(tenant, project, slug)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filestore: read blob: %w", err)
	}
	return data, nil
}

func (s *localStore) blobPath(tenant, project, slug string) (string, error) {
	for _, part := range []string{tenant, project, slug} {
		if part == "" || strings.ContainsAny(part, "/\\") || strings.Contains(part, "..") {
			return "", fmt.Errorf("filestore: invalid path segment %q", part)
		}
	}
	return filepath.Join(s.root, tenant, project, slug+".md"), nil
}
