package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/storage"
)

func (s *Server) handleFileUpload(c *gin.Context) {
	user := currentUser(c)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	f, err := header.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		s.logger.Error("Failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	if user.MaxFileSize > 0 && int64(len(content)) > user.MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileID, err := s.deps.Store.CreateFile(storage.File{
		FileName:    header.Filename,
		UserID:      user.UserID,
		Size:        int64(len(content)),
		Content:     content,
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("Failed to store file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	s.logger.Info("File uploaded",
		zap.Int64("user_id", user.UserID),
		zap.String("filename", header.Filename),
		zap.Int("size", len(content)),
	)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"file_id":  fileID,
		"filename": header.Filename,
		"size":     len(content),
		"message":  "File uploaded successfully",
	})
}

// isMemoryDocument reports whether the row is one of the fixed per-user
// memory documents, which share the file table but are not user uploads.
func isMemoryDocument(name string) bool {
	return name == constants.LongTermMemoryFilename || name == constants.ShortTermMemoryFilename
}

func (s *Server) handleFileList(c *gin.Context) {
	user := currentUser(c)

	files, err := s.deps.Store.ListFiles(user.UserID)
	if err != nil {
		s.logger.Error("Failed to list files", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list files"})
		return
	}

	out := make([]gin.H, 0, len(files))
	for _, f := range files {
		if isMemoryDocument(f.FileName) {
			continue
		}
		out = append(out, gin.H{
			"file_id":      f.FileID,
			"filename":     f.FileName,
			"size":         f.Size,
			"content_type": f.ContentType,
			"uploaded_at":  f.UploadedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   out,
		"count":   len(out),
	})
}

func (s *Server) fileByParam(c *gin.Context) (storage.File, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file id"})
		return storage.File{}, false
	}

	user := currentUser(c)
	f, err := s.deps.Store.GetFileByID(user.UserID, id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return storage.File{}, false
	}
	if err != nil {
		s.logger.Error("Failed to load file", zap.Int64("file_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve file"})
		return storage.File{}, false
	}
	return f, true
}

func (s *Server) handleFileDownload(c *gin.Context) {
	f, ok := s.fileByParam(c)
	if !ok {
		return
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName))
	c.Data(http.StatusOK, contentType, f.Content)
}

func (s *Server) handleFileDelete(c *gin.Context) {
	f, ok := s.fileByParam(c)
	if !ok {
		return
	}

	user := currentUser(c)
	if err := s.deps.Store.DeleteFile(user.UserID, f.FileID); err != nil {
		s.logger.Error("Failed to delete file", zap.Int64("file_id", f.FileID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete file"})
		return
	}

	s.logger.Info("File deleted",
		zap.Int64("user_id", user.UserID),
		zap.Int64("file_id", f.FileID),
		zap.String("filename", f.FileName),
	)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("File '%s' deleted successfully", f.FileName),
		"file_id": f.FileID,
	})
}
