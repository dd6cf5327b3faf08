package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jask/satchel/internal/database"
)

// ErrNotFound is returned by a Backend when no document exists for a key.
var ErrNotFound = errors.New("document not found")

// Backend reads and writes whole documents by key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// FileBackend stores each document as a file under Root. Keys are slash
// separated paths relative to Root.
type FileBackend struct {
	Root string
}

// NewFileBackend returns a backend rooted at root, creating the directory.
func NewFileBackend(root string) (*FileBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir document root: %w", err)
	}
	return &FileBackend{Root: root}, nil
}

func (b *FileBackend) Read(_ context.Context, key string) ([]byte, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the file atomically via a temp file and rename.
func (b *FileBackend) Write(_ context.Context, key string, data []byte) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", key, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) path(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty document key")
	}
	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid absolute document key %q", key)
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(b.Root, clean), nil
}

// SQLiteBackend stores documents as rows of the documents table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend wraps a migrated database (see database.OpenMigrated).
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := b.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

func (b *SQLiteBackend) Write(ctx context.Context, key string, data []byte) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty document key")
	}
	return database.WithTx(b.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
	INSERT INTO documents(key, body, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
	 body=excluded.body,
	 updated_at=excluded.updated_at;
	`, key, data, database.Now())
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return nil
	})
}
