package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/http/response"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

type FileHandler struct {
	log    *logger.Logger
	ingest services.IngestService
	files  services.FileService
}

func NewFileHandler(log *logger.Logger, ingest services.IngestService, files services.FileService) *FileHandler {
	return &FileHandler{
		log:    log.With("handler", "FileHandler"),
		ingest: ingest,
		files:  files,
	}
}

// Upload accepts one multipart file under the "file" field and runs the full
// validate/scan/store/extract pipeline on it.
func (h *FileHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer func() { _ = f.Close() }()

	record, err := h.ingest.IngestUpload(c.Request.Context(), fh.Filename, mimeType, fh.Size, f)
	if err != nil {
		var rejection *services.RejectionError
		if errors.As(err, &rejection) {
			response.RespondError(c, http.StatusBadRequest, "validation_rejected", err)
			return
		}
		var threat *services.ThreatError
		if errors.As(err, &threat) {
			response.RespondError(c, http.StatusBadRequest, "threat_detected", err)
			return
		}
		h.log.Error("Upload failed", "file", fh.Filename, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", err)
		return
	}

	payload := gin.H{
		"file_id":       record.ID,
		"storage_key":   record.StorageKey,
		"version_token": record.VersionToken,
		"status":        record.Status,
	}
	if url, err := h.files.DownloadURL(c.Request.Context(), record.ID); err == nil {
		payload["url"] = url
	}
	response.RespondCreated(c, payload)
}

func (h *FileHandler) GetFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}
	record, err := h.files.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "file_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	response.RespondOK(c, record)
}

func (h *FileHandler) ListFiles(c *gin.Context) {
	records, err := h.files.List(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"files": records})
}

// Download redirects to a time-limited signed URL rather than proxying the
// bytes through this process.
func (h *FileHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}
	url, err := h.files.DownloadURL(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "file_not_found", err)
			return
		}
		if errors.Is(err, services.ErrNotServable) {
			response.RespondError(c, http.StatusConflict, "file_not_available", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "download_failed", err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *FileHandler) DeleteFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}
	if err := h.files.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "file_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true, "file_id": id})
}

type replaceTagsRequest struct {
	Tags []string `json:"tags"`
}

func (h *FileHandler) ReplaceTags(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}
	var req replaceTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	record, err := h.files.ReplaceTags(c.Request.Context(), id, req.Tags)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "file_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "tag_update_failed", err)
		return
	}
	response.RespondOK(c, record)
}

func (h *FileHandler) ListVersions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}
	versions, err := h.files.ListVersions(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "file_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "version_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"file_id": id, "versions": versions})
}

type presignRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type" binding:"required"`
}

// PresignUpload validates the declared upload and hands back a direct PUT
// URL. The object is not trusted until CompleteUpload scans it.
func (h *FileHandler) PresignUpload(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	key, url, err := h.ingest.PresignUpload(c.Request.Context(), req.FileName, req.FileSize, req.MimeType)
	if err != nil {
		var rejection *services.RejectionError
		if errors.As(err, &rejection) {
			response.RespondError(c, http.StatusBadRequest, "validation_rejected", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "presign_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"storage_key": key, "upload_url": url})
}

type completeUploadRequest struct {
	StorageKey string `json:"storage_key" binding:"required"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	FileSize   int64  `json:"file_size"`
}

func (h *FileHandler) CompleteUpload(c *gin.Context) {
	var req completeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	record, err := h.ingest.CompleteUpload(c.Request.Context(), strings.TrimSpace(req.StorageKey), req.FileName, req.MimeType, req.FileSize)
	if err != nil {
		var threat *services.ThreatError
		if errors.As(err, &threat) {
			response.RespondError(c, http.StatusBadRequest, "threat_detected", err)
			return
		}
		h.log.Error("Complete upload failed", "storage_key", req.StorageKey, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "complete_failed", err)
		return
	}
	response.RespondOK(c, record)
}
