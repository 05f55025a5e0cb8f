package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for users, files, queries, and
// sessions.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs pending
// migrations. Pass ":memory:" for an in-memory database (used by tests).
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Users ---

func (s *Store) CreateUser(username, hashedPassword string, phoneNumber *int64) (User, error) {
	var phone sql.NullInt64
	if phoneNumber != nil {
		phone = sql.NullInt64{Int64: *phoneNumber, Valid: true}
	}
	res, err := s.db.Exec(`
		INSERT INTO user_account (username, hashed_password, phone_number)
		VALUES (?, ?, ?)`,
		username, hashedPassword, phone,
	)
	if isUniqueViolation(err) {
		return User{}, ErrConflict
	}
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return s.GetUserByID(id)
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	var phone sql.NullInt64
	err := row.Scan(&u.UserID, &u.Username, &u.HashedPassword, &u.MaxFileSize, &u.Role, &phone)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if phone.Valid {
		p := phone.Int64
		u.PhoneNumber = &p
	}
	return u, nil
}

func (s *Store) GetUserByID(userID int64) (User, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT user_id, username, hashed_password, max_file_size, role, phone_number
		FROM user_account WHERE user_id = ?`, userID))
}

func (s *Store) GetUserByUsername(username string) (User, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT user_id, username, hashed_password, max_file_size, role, phone_number
		FROM user_account WHERE username = ?`, username))
}

func (s *Store) GetUserByPhone(phoneNumber int64) (User, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT user_id, username, hashed_password, max_file_size, role, phone_number
		FROM user_account WHERE phone_number = ?`, phoneNumber))
}

func (s *Store) SetUserPhone(userID, phoneNumber int64) error {
	res, err := s.db.Exec(`UPDATE user_account SET phone_number = ? WHERE user_id = ?`, phoneNumber, userID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Files ---

func (s *Store) CreateFile(f File) (int64, error) {
	uploadedAt := f.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}
	var lastModified sql.NullString
	if !f.LastModified.IsZero() {
		lastModified = sql.NullString{String: f.LastModified.UTC().Format(time.RFC3339), Valid: true}
	}
	res, err := s.db.Exec(`
		INSERT INTO file (file_name, user_id, path, size, content, content_type, uploaded_at, file_hash, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FileName, f.UserID, f.Path, f.Size, f.Content, f.ContentType,
		uploadedAt.UTC().Format(time.RFC3339), f.FileHash, lastModified,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanFile(scan func(dest ...interface{}) error) (File, error) {
	var f File
	var path, contentType, fileHash, lastModified sql.NullString
	var uploadedAt string
	err := scan(&f.FileID, &f.FileName, &f.UserID, &path, &f.Size, &f.Content, &contentType, &uploadedAt, &fileHash, &lastModified)
	if err == sql.ErrNoRows {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, err
	}
	f.Path = path.String
	f.ContentType = contentType.String
	f.FileHash = fileHash.String
	t, err := time.Parse(time.RFC3339, uploadedAt)
	if err != nil {
		return File{}, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	f.UploadedAt = t
	if lastModified.Valid {
		t, err := time.Parse(time.RFC3339, lastModified.String)
		if err != nil {
			return File{}, fmt.Errorf("parsing last_modified: %w", err)
		}
		f.LastModified = t
	}
	return f, nil
}

const fileColumns = `file_id, file_name, user_id, path, size, content, content_type, uploaded_at, file_hash, last_modified`

func (s *Store) GetFileByID(userID, fileID int64) (File, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM file WHERE file_id = ? AND user_id = ?`, fileID, userID)
	return scanFile(row.Scan)
}

// GetFileByName returns the user's most recently uploaded file with the given
// name. Filenames are not unique per user; the newest row wins, matching the
// lookup the file tools perform.
func (s *Store) GetFileByName(userID int64, name string) (File, error) {
	row := s.db.QueryRow(`
		SELECT `+fileColumns+` FROM file
		WHERE user_id = ? AND file_name = ?
		ORDER BY file_id DESC LIMIT 1`, userID, name)
	return scanFile(row.Scan)
}

// ListFiles returns file metadata for a user without loading content blobs.
func (s *Store) ListFiles(userID int64) ([]File, error) {
	rows, err := s.db.Query(`
		SELECT file_id, file_name, user_id, path, size, content_type, uploaded_at, file_hash, last_modified
		FROM file WHERE user_id = ? ORDER BY file_id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []File
	for rows.Next() {
		var f File
		var path, contentType, fileHash, lastModified sql.NullString
		var uploadedAt string
		if err := rows.Scan(&f.FileID, &f.FileName, &f.UserID, &path, &f.Size, &contentType, &uploadedAt, &fileHash, &lastModified); err != nil {
			return nil, err
		}
		f.Path = path.String
		f.ContentType = contentType.String
		f.FileHash = fileHash.String
		t, err := time.Parse(time.RFC3339, uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing uploaded_at: %w", err)
		}
		f.UploadedAt = t
		if lastModified.Valid {
			t, err := time.Parse(time.RFC3339, lastModified.String)
			if err != nil {
				return nil, fmt.Errorf("parsing last_modified: %w", err)
			}
			f.LastModified = t
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

func (s *Store) UpdateFileContent(fileID int64, content []byte, fileHash string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`
		UPDATE file SET content = ?, size = ?, file_hash = ?, last_modified = ?
		WHERE file_id = ?`,
		content, int64(len(content)), fileHash, now, fileID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteFile(userID, fileID int64) error {
	res, err := s.db.Exec(`DELETE FROM file WHERE file_id = ? AND user_id = ?`, fileID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrCreateFile returns the named file, creating it with defaultContent
// when absent. The memory layer keeps its per-user documents this way.
func (s *Store) GetOrCreateFile(userID int64, name, contentType string, defaultContent []byte) (File, error) {
	f, err := s.GetFileByName(userID, name)
	if err == nil {
		return f, nil
	}
	if err != ErrNotFound {
		return File{}, err
	}
	id, err := s.CreateFile(File{
		FileName:    name,
		UserID:      userID,
		Size:        int64(len(defaultContent)),
		Content:     defaultContent,
		ContentType: contentType,
	})
	if err != nil {
		return File{}, err
	}
	return s.GetFileByID(userID, id)
}

// TotalFileSize sums the stored sizes of a user's files, for quota checks.
func (s *Store) TotalFileSize(userID int64) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(size) FROM file WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// --- Queries ---

func (s *Store) CreateQuery(userID int64, chatID, queryText string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO query (user_id, chat_id, query_text, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, chatID, queryText, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) UpdateQueryResponse(queryID int64, response string) error {
	res, err := s.db.Exec(`UPDATE query SET response = ? WHERE query_id = ?`, response, queryID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetQuery(queryID int64) (Query, error) {
	var q Query
	var chatID, response sql.NullString
	var createdAt string
	err := s.db.QueryRow(`
		SELECT query_id, user_id, chat_id, query_text, response, created_at
		FROM query WHERE query_id = ?`, queryID,
	).Scan(&q.QueryID, &q.UserID, &chatID, &q.QueryText, &response, &createdAt)
	if err == sql.ErrNoRows {
		return Query{}, ErrNotFound
	}
	if err != nil {
		return Query{}, err
	}
	q.ChatID = chatID.String
	q.Response = response.String
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Query{}, fmt.Errorf("parsing created_at: %w", err)
	}
	q.CreatedAt = t
	return q, nil
}

// --- Sessions ---

func (s *Store) CreateSession(userID int64, token string, expiresAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO session (user_id, token, expires_at)
		VALUES (?, ?, ?)`,
		userID, token, expiresAt.UTC().Format(time.RFC3339),
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *Store) GetSessionByToken(token string) (Session, error) {
	var sess Session
	var expiresAt string
	err := s.db.QueryRow(`
		SELECT session_id, user_id, token, expires_at
		FROM session WHERE token = ?`, token,
	).Scan(&sess.SessionID, &sess.UserID, &sess.Token, &expiresAt)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	t, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("parsing expires_at: %w", err)
	}
	sess.ExpiresAt = t
	return sess, nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were purged.
func (s *Store) DeleteExpiredSessions(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM session WHERE expires_at <= ?`, now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
