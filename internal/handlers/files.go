package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"chat-server/internal/files"
	"chat-server/internal/keys"
	"chat-server/internal/repositories"
	"chat-server/internal/telemetry"
)

// MaxUploadBytes caps a single upload.
const MaxUploadBytes = 100 << 20

// FileHandler serves encrypted uploads and downloads.
type FileHandler struct {
	envelope *files.Envelope
	audit    *telemetry.AuditEmitter
}

// NewFileHandler builds a FileHandler.
func NewFileHandler(envelope *files.Envelope, audit *telemetry.AuditEmitter) *FileHandler {
	return &FileHandler{envelope: envelope, audit: audit}
}

// Upload accepts a multipart file, seals it, and returns its opaque id.
func (h *FileHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if header.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file, err := h.envelope.Store(c.Request.Context(), filepath.Base(header.Filename), mimeType, raw)
	if err != nil {
		if errors.Is(err, files.ErrEmptyFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty file"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
		return
	}

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "file uploaded", requestIDFromContext(c), userIDFromContext(c))
	}
	c.JSON(http.StatusCreated, gin.H{
		"file_id":       file.ID,
		"original_name": file.OriginalName,
		"mime_type":     file.MimeType,
	})
}

// Download unseals a stored file and streams the plaintext.
func (h *FileHandler) Download(c *gin.Context) {
	fileID := c.Param("file_id")

	file, raw, err := h.envelope.Retrieve(c.Request.Context(), fileID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		case errors.Is(err, keys.ErrDecryption):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decrypt file"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not retrieve file"})
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	c.Data(http.StatusOK, file.MimeType, raw)
}
