package memory

import (
	"fmt"
	"os"
	"path/filepath"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/storage"
)

// Backend persists raw memory documents. Load returns the document bytes for
// a tier; Save replaces them.
type Backend interface {
	Load(tier string, userID int64) ([]byte, error)
	Save(tier string, userID int64, data []byte) error
}

func tierFilename(tier string) string {
	if tier == TierLongTerm {
		return constants.LongTermMemoryFilename
	}
	return constants.ShortTermMemoryFilename
}

// DBBackend keeps memory documents as per-user JSON blob rows in the file
// table, created on first access with empty-object content.
type DBBackend struct {
	store *storage.Store
}

// NewDBBackend returns a Backend over the given database.
func NewDBBackend(store *storage.Store) *DBBackend {
	return &DBBackend{store: store}
}

func (b *DBBackend) Load(tier string, userID int64) ([]byte, error) {
	f, err := b.store.GetOrCreateFile(userID, tierFilename(tier), "application/json", []byte("{}"))
	if err != nil {
		return nil, fmt.Errorf("loading %s memory row: %w", tier, err)
	}
	return f.Content, nil
}

func (b *DBBackend) Save(tier string, userID int64, data []byte) error {
	f, err := b.store.GetOrCreateFile(userID, tierFilename(tier), "application/json", []byte("{}"))
	if err != nil {
		return fmt.Errorf("locating %s memory row: %w", tier, err)
	}
	if err := b.store.UpdateFileContent(f.FileID, data, ""); err != nil {
		return fmt.Errorf("writing %s memory row: %w", tier, err)
	}
	return nil
}

// FileBackend keeps memory documents as JSON files in a local data
// directory. It serves the single-user CLI, so the user id does not shard
// the filenames.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a Backend writing under dir, created on demand.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(tier string) string {
	return filepath.Join(b.dir, tierFilename(tier))
}

func (b *FileBackend) Load(tier string, _ int64) ([]byte, error) {
	data, err := os.ReadFile(b.path(tier))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *FileBackend) Save(tier string, _ int64, data []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(b.path(tier), data, 0o644)
}
