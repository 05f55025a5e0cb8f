package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert violates a uniqueness constraint
// (duplicate username, phone number already registered).
var ErrConflict = errors.New("already exists")

// User is a row in user_account. PhoneNumber is nil when the user has not
// registered a phone; the column carries a uniqueness constraint so SMS
// webhooks can resolve senders.
type User struct {
	UserID         int64
	Username       string
	HashedPassword string
	MaxFileSize    int64
	Role           int
	PhoneNumber    *int64
}

// File is a row in file. Content is the raw blob; memory documents are kept
// as JSON blobs in this table under fixed filenames.
type File struct {
	FileID       int64
	FileName     string
	UserID       int64
	Path         string
	Size         int64
	Content      []byte
	ContentType  string
	UploadedAt   time.Time
	FileHash     string
	LastModified time.Time
}

// Query is a row in query: one record per inbound question, updated with the
// response once the turn completes.
type Query struct {
	QueryID   int64
	UserID    int64
	ChatID    string
	QueryText string
	Response  string
	CreatedAt time.Time
}

// Session is a row in session: an opaque bearer token with an expiry.
type Session struct {
	SessionID int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
}
