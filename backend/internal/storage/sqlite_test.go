package storage

import (
	"bytes"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, username string, phone *int64) User {
	t.Helper()
	u, err := s.CreateUser(username, "hashed", phone)
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", username, err)
	}
	return u
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/thoth.db"

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestCreateUserAndLookups(t *testing.T) {
	s := openTestStore(t)

	phone := int64(18073587137)
	u := createTestUser(t, s, "gad", &phone)
	if u.UserID == 0 {
		t.Fatal("expected non-zero user id")
	}
	if u.MaxFileSize != 524288000 {
		t.Errorf("expected default max_file_size 524288000, got %d", u.MaxFileSize)
	}
	if u.PhoneNumber == nil || *u.PhoneNumber != phone {
		t.Errorf("phone number not persisted: %v", u.PhoneNumber)
	}

	byName, err := s.GetUserByUsername("gad")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.UserID != u.UserID {
		t.Errorf("expected user %d, got %d", u.UserID, byName.UserID)
	}

	byPhone, err := s.GetUserByPhone(phone)
	if err != nil {
		t.Fatalf("GetUserByPhone: %v", err)
	}
	if byPhone.UserID != u.UserID {
		t.Errorf("expected user %d, got %d", u.UserID, byPhone.UserID)
	}

	if _, err := s.GetUserByUsername("nobody"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := openTestStore(t)

	createTestUser(t, s, "gad", nil)
	if _, err := s.CreateUser("gad", "other", nil); err != ErrConflict {
		t.Errorf("expected ErrConflict for duplicate username, got %v", err)
	}
}

func TestUsersWithoutPhonesDoNotCollide(t *testing.T) {
	s := openTestStore(t)

	createTestUser(t, s, "first", nil)
	createTestUser(t, s, "second", nil)

	u, err := s.GetUserByUsername("second")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.PhoneNumber != nil {
		t.Errorf("expected nil phone, got %v", *u.PhoneNumber)
	}
}

func TestSetUserPhone(t *testing.T) {
	s := openTestStore(t)

	u := createTestUser(t, s, "gad", nil)
	if err := s.SetUserPhone(u.UserID, 15551234567); err != nil {
		t.Fatalf("SetUserPhone: %v", err)
	}

	byPhone, err := s.GetUserByPhone(15551234567)
	if err != nil {
		t.Fatalf("GetUserByPhone after SetUserPhone: %v", err)
	}
	if byPhone.UserID != u.UserID {
		t.Errorf("expected user %d, got %d", u.UserID, byPhone.UserID)
	}

	other := createTestUser(t, s, "other", nil)
	if err := s.SetUserPhone(other.UserID, 15551234567); err != ErrConflict {
		t.Errorf("expected ErrConflict for duplicate phone, got %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	content := []byte("hello notes")
	id, err := s.CreateFile(File{
		FileName:    "notes.md",
		UserID:      u.UserID,
		Size:        int64(len(content)),
		Content:     content,
		ContentType: "text/markdown",
		FileHash:    "abc123",
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	f, err := s.GetFileByID(u.UserID, id)
	if err != nil {
		t.Fatalf("GetFileByID: %v", err)
	}
	if !bytes.Equal(f.Content, content) {
		t.Errorf("content mismatch: %q", f.Content)
	}
	if f.UploadedAt.IsZero() {
		t.Error("expected uploaded_at to be set")
	}

	byName, err := s.GetFileByName(u.UserID, "notes.md")
	if err != nil {
		t.Fatalf("GetFileByName: %v", err)
	}
	if byName.FileID != id {
		t.Errorf("expected file %d, got %d", id, byName.FileID)
	}

	// A second file with the same name wins lookups
	id2, err := s.CreateFile(File{FileName: "notes.md", UserID: u.UserID, Size: 3, Content: []byte("new")})
	if err != nil {
		t.Fatalf("CreateFile second: %v", err)
	}
	newest, err := s.GetFileByName(u.UserID, "notes.md")
	if err != nil {
		t.Fatalf("GetFileByName second: %v", err)
	}
	if newest.FileID != id2 {
		t.Errorf("expected newest file %d, got %d", id2, newest.FileID)
	}
}

func TestFileScopedByUser(t *testing.T) {
	s := openTestStore(t)
	owner := createTestUser(t, s, "owner", nil)
	intruder := createTestUser(t, s, "intruder", nil)

	id, err := s.CreateFile(File{FileName: "secret.txt", UserID: owner.UserID, Size: 6, Content: []byte("secret")})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	if _, err := s.GetFileByID(intruder.UserID, id); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for other user's file, got %v", err)
	}
	if err := s.DeleteFile(intruder.UserID, id); err != ErrNotFound {
		t.Errorf("expected ErrNotFound deleting other user's file, got %v", err)
	}
	if err := s.DeleteFile(owner.UserID, id); err != nil {
		t.Errorf("owner delete failed: %v", err)
	}
}

func TestUpdateFileContent(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	id, err := s.CreateFile(File{FileName: "log.txt", UserID: u.UserID, Size: 5, Content: []byte("start")})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	if err := s.UpdateFileContent(id, []byte("start+more"), "newhash"); err != nil {
		t.Fatalf("UpdateFileContent: %v", err)
	}

	f, err := s.GetFileByID(u.UserID, id)
	if err != nil {
		t.Fatalf("GetFileByID: %v", err)
	}
	if string(f.Content) != "start+more" {
		t.Errorf("content not updated: %q", f.Content)
	}
	if f.Size != int64(len("start+more")) {
		t.Errorf("size not updated: %d", f.Size)
	}
	if f.FileHash != "newhash" {
		t.Errorf("hash not updated: %q", f.FileHash)
	}
	if f.LastModified.IsZero() {
		t.Error("expected last_modified to be set")
	}

	if err := s.UpdateFileContent(9999, []byte("x"), "h"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing file, got %v", err)
	}
}

func TestListFilesOmitsContent(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, err := s.CreateFile(File{FileName: name, UserID: u.UserID, Size: 1, Content: []byte("x")}); err != nil {
			t.Fatalf("CreateFile(%s): %v", name, err)
		}
	}

	files, err := s.ListFiles(u.UserID)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	for _, f := range files {
		if f.Content != nil {
			t.Errorf("expected no content in listing for %s", f.FileName)
		}
	}
}

func TestGetOrCreateFile(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	f1, err := s.GetOrCreateFile(u.UserID, "short_term_memory.json", "application/json", []byte("{}"))
	if err != nil {
		t.Fatalf("GetOrCreateFile: %v", err)
	}
	if string(f1.Content) != "{}" {
		t.Errorf("expected default content, got %q", f1.Content)
	}

	if err := s.UpdateFileContent(f1.FileID, []byte(`{"conversations": []}`), ""); err != nil {
		t.Fatalf("UpdateFileContent: %v", err)
	}

	f2, err := s.GetOrCreateFile(u.UserID, "short_term_memory.json", "application/json", []byte("{}"))
	if err != nil {
		t.Fatalf("GetOrCreateFile second: %v", err)
	}
	if f2.FileID != f1.FileID {
		t.Errorf("expected same file row, got %d and %d", f1.FileID, f2.FileID)
	}
	if string(f2.Content) != `{"conversations": []}` {
		t.Errorf("expected updated content, got %q", f2.Content)
	}
}

func TestTotalFileSize(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	total, err := s.TotalFileSize(u.UserID)
	if err != nil {
		t.Fatalf("TotalFileSize empty: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 for no files, got %d", total)
	}

	s.CreateFile(File{FileName: "a", UserID: u.UserID, Size: 10, Content: make([]byte, 10)})
	s.CreateFile(File{FileName: "b", UserID: u.UserID, Size: 32, Content: make([]byte, 32)})

	total, err = s.TotalFileSize(u.UserID)
	if err != nil {
		t.Fatalf("TotalFileSize: %v", err)
	}
	if total != 42 {
		t.Errorf("expected 42, got %d", total)
	}
}

func TestQueryLifecycle(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	id, err := s.CreateQuery(u.UserID, "chat_1_100", "what's the weather?")
	if err != nil {
		t.Fatalf("CreateQuery: %v", err)
	}

	q, err := s.GetQuery(id)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if q.Response != "" {
		t.Errorf("expected empty response before update, got %q", q.Response)
	}

	if err := s.UpdateQueryResponse(id, "sunny"); err != nil {
		t.Fatalf("UpdateQueryResponse: %v", err)
	}

	q, err = s.GetQuery(id)
	if err != nil {
		t.Fatalf("GetQuery after update: %v", err)
	}
	if q.Response != "sunny" {
		t.Errorf("expected response sunny, got %q", q.Response)
	}
	if q.ChatID != "chat_1_100" {
		t.Errorf("chat id not persisted: %q", q.ChatID)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	future := time.Now().Add(30 * time.Minute)
	if err := s.CreateSession(u.UserID, "token-abc", future); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sess, err := s.GetSessionByToken("token-abc")
	if err != nil {
		t.Fatalf("GetSessionByToken: %v", err)
	}
	if sess.UserID != u.UserID {
		t.Errorf("expected user %d, got %d", u.UserID, sess.UserID)
	}

	if _, err := s.GetSessionByToken("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.CreateSession(u.UserID, "token-abc", future); err != ErrConflict {
		t.Errorf("expected ErrConflict for duplicate token, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "gad", nil)

	now := time.Now()
	s.CreateSession(u.UserID, "expired-1", now.Add(-time.Hour))
	s.CreateSession(u.UserID, "expired-2", now.Add(-time.Minute))
	s.CreateSession(u.UserID, "live", now.Add(time.Hour))

	purged, err := s.DeleteExpiredSessions(now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if purged != 2 {
		t.Errorf("expected 2 purged, got %d", purged)
	}

	if _, err := s.GetSessionByToken("live"); err != nil {
		t.Errorf("live session should survive: %v", err)
	}
	if _, err := s.GetSessionByToken("expired-1"); err != ErrNotFound {
		t.Errorf("expired session should be gone, got %v", err)
	}
}
