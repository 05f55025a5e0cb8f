package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"thoth/backend/internal/storage"
	"thoth/backend/pkg/logger"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// coerceUserID normalizes a user_id argument to an integer. Models pass
// ids as ints, digit strings, or mixed strings like "user-1234"; the
// last digit sequence wins for mixed strings.
func coerceUserID(v interface{}) (int64, error) {
	switch uid := v.(type) {
	case int64:
		return uid, nil
	case int:
		return int64(uid), nil
	case float64:
		return int64(uid), nil
	case string:
		s := strings.TrimSpace(uid)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if m := trailingDigits.FindString(s); m != "" {
			return strconv.ParseInt(m, 10, 64)
		}
	}
	return 0, fmt.Errorf("user_id must be an integer or contain a trailing numeric ID (e.g., 'user-1234')")
}

// argString reads a string argument, returning "" when absent or not a
// string.
func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileTools exposes the database-backed file tools: write_file,
// read_file and list_file.
type FileTools struct {
	store  *storage.Store
	logger *zap.Logger
}

// NewFileTools creates the file tool set backed by the given store.
func NewFileTools(store *storage.Store) *FileTools {
	return &FileTools{
		store:  store,
		logger: logger.Get(),
	}
}

// Definitions returns the file tool definitions for registration.
func (t *FileTools) Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolWriteFile,
			Description: "Create or update a user file, storing its content on the database.",
			Params: []Param{
				{Name: "filename"},
				{Name: "content"},
				{Name: "user_id"},
				{Name: "mode"},
			},
			Required: []string{"filename", "content", "user_id"},
			Handler:  t.writeFile,
		},
		{
			Name:        ToolReadFile,
			Description: "Read the content of a user file stored in the database and return it as text.",
			Params: []Param{
				{Name: "filename", Description: "Logical filename (e.g. `notes.md`)."},
				{Name: "user_id", Description: "Owning user's database ID."},
			},
			Required: []string{"filename", "user_id"},
			Handler:  t.readFile,
		},
		{
			Name:        ToolListFile,
			Description: "List files for a user directly from the database.",
			Params: []Param{
				{Name: "user_id"},
			},
			Required: []string{"user_id"},
			Handler:  t.listFile,
		},
	}
}

func (t *FileTools) writeFile(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
	filename := argString(args, "filename")
	content := argString(args, "content")
	mode := argString(args, "mode")
	if mode == "" {
		mode = "overwrite"
	}
	if mode != "overwrite" && mode != "append" {
		return nil, fmt.Errorf("mode must be either 'overwrite' or 'append'")
	}

	userID, err := coerceUserID(args["user_id"])
	if err != nil {
		return nil, err
	}

	data := []byte(content)
	bytesWritten := len(data)

	t.logger.Info("Writing file",
		zap.Int64("user_id", userID),
		zap.String("filename", filename),
		zap.String("mode", mode),
		zap.Int("bytes", bytesWritten),
	)

	existing, err := t.store.GetFileByName(userID, filename)
	switch {
	case err == storage.ErrNotFound:
		fileID, err := t.store.CreateFile(storage.File{
			FileName:    filename,
			UserID:      userID,
			Size:        int64(bytesWritten),
			Content:     data,
			ContentType: "text/plain",
			FileHash:    sha256Hex(data),
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"status":        "success",
			"fileId":        fileID,
			"filename":      filename,
			"mode":          mode,
			"bytes_written": bytesWritten,
			"total_size":    bytesWritten,
		}, nil
	case err != nil:
		return nil, err
	}

	updated := data
	if mode == "append" {
		updated = append(append([]byte{}, existing.Content...), data...)
	}
	if err := t.store.UpdateFileContent(existing.FileID, updated, sha256Hex(updated)); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":        "success",
		"fileId":        existing.FileID,
		"filename":      filename,
		"mode":          mode,
		"bytes_written": bytesWritten,
		"total_size":    len(updated),
	}, nil
}

func (t *FileTools) readFile(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
	filename := argString(args, "filename")
	userID, err := coerceUserID(args["user_id"])
	if err != nil {
		return nil, err
	}

	f, err := t.store.GetFileByName(userID, filename)
	if err == storage.ErrNotFound {
		return map[string]interface{}{
			"status":  "error",
			"message": fmt.Sprintf("File '%s' not found for user %d.", filename, userID),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	contentText := string(f.Content)
	if !utf8.ValidString(contentText) {
		contentText = "[BINARY OR UNDECODABLE CONTENT]"
	}

	return map[string]interface{}{
		"status":       "success",
		"fileId":       f.FileID,
		"filename":     filename,
		"size":         f.Size,
		"content":      contentText,
		"content_type": f.ContentType,
	}, nil
}

func (t *FileTools) listFile(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
	userID, err := coerceUserID(args["user_id"])
	if err != nil {
		return nil, err
	}

	records, err := t.store.ListFiles(userID)
	if err != nil {
		return nil, err
	}

	files := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		var fileHash interface{}
		if r.FileHash != "" {
			fileHash = r.FileHash
		}
		var lastModified interface{}
		if !r.LastModified.IsZero() {
			lastModified = r.LastModified.Format(time.RFC3339)
		}
		files = append(files, map[string]interface{}{
			"fileId":        r.FileID,
			"filename":      r.FileName,
			"size":          r.Size,
			"uploaded_at":   r.UploadedAt.Format(time.RFC3339),
			"file_hash":     fileHash,
			"last_modified": lastModified,
		})
	}

	return map[string]interface{}{
		"status": "success",
		"files":  files,
		"count":  len(files),
	}, nil
}
