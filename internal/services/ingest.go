package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/gcp"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/platform/notify"
	"github.com/yungbote/filevault-backend/internal/platform/queue"
	"github.com/yungbote/filevault-backend/internal/repos"
	"github.com/yungbote/filevault-backend/internal/types"
)

// RejectionError is a user-correctable policy rejection. No bytes were
// persisted.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// ThreatError reports an infected verdict. The record (if any) is retained
// as an audit trail with status infected; bytes are gone from the primary
// namespace.
type ThreatError struct {
	RecordID uuid.UUID
	ScanID   string
	Threats  []string
}

func (e *ThreatError) Error() string {
	return fmt.Sprintf("threat detected: %s", strings.Join(e.Threats, ", "))
}

type ExtractMode string

const (
	ExtractModeSync  ExtractMode = "sync"
	ExtractModeAsync ExtractMode = "async"
)

type IngestConfig struct {
	ExtractMode ExtractMode
	PresignTTL  time.Duration
}

// IngestService owns the file lifecycle: validate, scan, store, extract,
// index. The synchronous path scans before any byte is persisted; the
// presigned path scans after the client has landed bytes directly in the
// bucket. Both end with infected bytes unreachable outside quarantine.
type IngestService interface {
	IngestUpload(ctx context.Context, fileName, mimeType string, size int64, content io.ReadSeeker) (*types.FileRecord, error)
	PresignUpload(ctx context.Context, fileName string, size int64, mimeType string) (string, string, error)
	CompleteUpload(ctx context.Context, storageKey, fileName, mimeType string, size int64) (*types.FileRecord, error)
	ProcessStoredObject(ctx context.Context, storageKey string) (*types.FileRecord, error)
	// ExtractStored downloads the record's bytes, runs extraction, merges the
	// result, and promotes processing to available. Safe to call more than
	// once; a record no longer in processing is left untouched.
	ExtractStored(ctx context.Context, fileID uuid.UUID) error
}

type ingestService struct {
	log       *logger.Logger
	cfg       IngestConfig
	validator ValidatorService
	scanner   ScannerService
	extractor ExtractorService
	bucket    gcp.BucketService
	records   repos.FileRecordRepo
	jobs      queue.ExtractQueue
	notifier  notify.Notifier
}

func NewIngestService(
	log *logger.Logger,
	cfg IngestConfig,
	validator ValidatorService,
	scanner ScannerService,
	extractor ExtractorService,
	bucket gcp.BucketService,
	records repos.FileRecordRepo,
	jobs queue.ExtractQueue,
	notifier notify.Notifier,
) (IngestService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if validator == nil || scanner == nil || extractor == nil {
		return nil, fmt.Errorf("validator, scanner and extractor required")
	}
	if bucket == nil || records == nil {
		return nil, fmt.Errorf("bucket service and record repo required")
	}
	if cfg.ExtractMode == "" {
		cfg.ExtractMode = ExtractModeSync
	}
	if cfg.ExtractMode == ExtractModeAsync && jobs == nil {
		return nil, fmt.Errorf("async extraction requires an extract queue")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	return &ingestService{
		log:       log.With("service", "IngestService"),
		cfg:       cfg,
		validator: validator,
		scanner:   scanner,
		extractor: extractor,
		bucket:    bucket,
		records:   records,
		jobs:      jobs,
		notifier:  notifier,
	}, nil
}

func (s *ingestService) IngestUpload(ctx context.Context, fileName, mimeType string, size int64, content io.ReadSeeker) (*types.FileRecord, error) {
	ctx = ctxutil.Default(ctx)

	if v := s.validator.ValidateUpload(fileName, size, mimeType); !v.Valid {
		return nil, &RejectionError{Reason: v.Message}
	}

	hasher := sha256.New()
	verdict := s.scanner.ScanStream(ctx, io.TeeReader(content, hasher))
	contentHash := hex.EncodeToString(hasher.Sum(nil))

	if !verdict.IsClean {
		record := &types.FileRecord{
			Name:     fileName,
			Size:     size,
			MimeType: mimeType,
			Status:   types.FileStatusInfected,
		}
		record.ScanResult = mustJSON(verdict)
		if _, err := s.records.Create(ctx, nil, record); err != nil {
			s.log.Error("Failed to persist infected audit record", "file", fileName, "error", err)
		}
		s.notifyQuarantine(ctx, record.ID, "", verdict)
		return record, &ThreatError{RecordID: record.ID, ScanID: verdict.ScanID, Threats: verdict.Threats}
	}

	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload stream: %w", err)
	}

	record := &types.FileRecord{
		Name:     fileName,
		Size:     size,
		MimeType: mimeType,
		Status:   types.FileStatusProcessing,
	}
	record.ScanResult = mustJSON(verdict)
	record.ContentHash = contentHash
	if _, err := s.records.Create(ctx, nil, record); err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}

	key := gcp.ObjectKeyFor(fileName)
	versionToken, err := s.bucket.Upload(ctx, gcp.NamespacePrimary, key, mimeType, content, map[string]string{
		"original_name": fileName,
		"content_hash":  contentHash,
		"scan_id":       verdict.ScanID,
	})
	if err != nil {
		s.markError(ctx, record.ID, err)
		return nil, fmt.Errorf("store file bytes: %w", err)
	}

	versions := []types.FileVersion{{
		VersionToken: versionToken,
		CreatedAt:    time.Now().UTC(),
		Size:         size,
		IsLatest:     true,
	}}
	if err := s.records.UpdateFields(ctx, nil, record.ID, map[string]any{
		"storage_key":   key,
		"version_token": versionToken,
		"versions":      mustJSON(versions),
	}); err != nil {
		s.markError(ctx, record.ID, err)
		return nil, fmt.Errorf("record storage locator: %w", err)
	}

	switch s.cfg.ExtractMode {
	case ExtractModeAsync:
		job := queue.ExtractJob{
			FileID:     record.ID,
			StorageKey: key,
			MimeType:   mimeType,
			FileName:   fileName,
		}
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			// Extraction only enriches; the upload itself succeeded. Promote
			// so the file is servable, leaving metadata minimal.
			s.log.Error("Failed to enqueue extraction, promoting without metadata", "file_id", record.ID, "error", err)
			if _, casErr := s.records.UpdateStatusIf(ctx, nil, record.ID, types.FileStatusAvailable, []types.FileStatus{types.FileStatusProcessing}); casErr != nil {
				s.log.Error("Failed to promote record", "file_id", record.ID, "error", casErr)
			}
		}
	default:
		if _, err := content.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload stream: %w", err)
		}
		data, err := io.ReadAll(content)
		if err != nil {
			s.markError(ctx, record.ID, err)
			return nil, fmt.Errorf("read upload for extraction: %w", err)
		}
		if err := s.finalizeExtraction(ctx, record.ID, data, mimeType, fileName); err != nil {
			return nil, err
		}
	}

	return s.records.GetByID(ctx, nil, record.ID)
}

func (s *ingestService) PresignUpload(ctx context.Context, fileName string, size int64, mimeType string) (string, string, error) {
	if v := s.validator.ValidateUpload(fileName, size, mimeType); !v.Valid {
		return "", "", &RejectionError{Reason: v.Message}
	}
	key := gcp.ObjectKeyFor(fileName)
	u, err := s.bucket.UploadURL(gcp.NamespacePrimary, key, mimeType, s.cfg.PresignTTL)
	if err != nil {
		return "", "", fmt.Errorf("sign upload url: %w", err)
	}
	return key, u, nil
}

func (s *ingestService) CompleteUpload(ctx context.Context, storageKey, fileName, mimeType string, size int64) (*types.FileRecord, error) {
	ctx = ctxutil.Default(ctx)

	if _, err := s.records.GetByStorageKey(ctx, nil, storageKey); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if fileName == "" {
			fileName = path.Base(storageKey)
		}
		record := &types.FileRecord{
			Name:       fileName,
			Size:       size,
			MimeType:   mimeType,
			StorageKey: storageKey,
			Status:     types.FileStatusProcessing,
		}
		if _, err := s.records.Create(ctx, nil, record); err != nil {
			return nil, fmt.Errorf("create file record: %w", err)
		}
	}
	return s.ProcessStoredObject(ctx, storageKey)
}

// ProcessStoredObject scans an object the client uploaded directly. The
// record is looked up by storage key; earliest upload wins if keys ever
// collide. Infected (or unverifiable) objects are quarantined: copy into the
// quarantine namespace then delete the original, both attempted even when
// the first fails.
func (s *ingestService) ProcessStoredObject(ctx context.Context, storageKey string) (*types.FileRecord, error) {
	ctx = ctxutil.Default(ctx)

	record, err := s.records.GetByStorageKey(ctx, nil, storageKey)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		record = &types.FileRecord{
			Name:       path.Base(storageKey),
			StorageKey: storageKey,
			Status:     types.FileStatusProcessing,
		}
		if record, err = s.records.Create(ctx, nil, record); err != nil {
			return nil, fmt.Errorf("create file record: %w", err)
		}
	}

	rc, err := s.bucket.Download(ctx, gcp.NamespacePrimary, storageKey, "")
	if err != nil {
		s.markError(ctx, record.ID, err)
		return nil, fmt.Errorf("download stored object: %w", err)
	}
	hasher := sha256.New()
	verdict := s.scanner.ScanStream(ctx, io.TeeReader(rc, hasher))
	_ = rc.Close()
	contentHash := hex.EncodeToString(hasher.Sum(nil))

	if !verdict.IsClean {
		return s.quarantine(ctx, record, storageKey, verdict)
	}

	fields := map[string]any{
		"scan_result":  mustJSON(verdict),
		"content_hash": contentHash,
	}
	if attrs, err := s.bucket.Attrs(ctx, gcp.NamespacePrimary, storageKey); err == nil {
		fields["version_token"] = attrs.VersionToken
		if record.Size == 0 {
			fields["size"] = attrs.Size
		}
		if record.MimeType == "" && attrs.ContentType != "" {
			fields["mime_type"] = attrs.ContentType
		}
		versions := []types.FileVersion{{
			VersionToken: attrs.VersionToken,
			CreatedAt:    time.Now().UTC(),
			Size:         attrs.Size,
			IsLatest:     true,
		}}
		fields["versions"] = mustJSON(versions)
	}
	if err := s.records.UpdateFields(ctx, nil, record.ID, fields); err != nil {
		return nil, fmt.Errorf("record scan verdict: %w", err)
	}

	if s.cfg.ExtractMode == ExtractModeAsync {
		job := queue.ExtractJob{
			FileID:     record.ID,
			StorageKey: storageKey,
			MimeType:   record.MimeType,
			FileName:   record.Name,
		}
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			s.log.Error("Failed to enqueue extraction, promoting without metadata", "file_id", record.ID, "error", err)
			if _, casErr := s.records.UpdateStatusIf(ctx, nil, record.ID, types.FileStatusAvailable, []types.FileStatus{types.FileStatusProcessing}); casErr != nil {
				s.log.Error("Failed to promote record", "file_id", record.ID, "error", casErr)
			}
		}
	} else if err := s.ExtractStored(ctx, record.ID); err != nil {
		return nil, err
	}

	return s.records.GetByID(ctx, nil, record.ID)
}

func (s *ingestService) ExtractStored(ctx context.Context, fileID uuid.UUID) error {
	ctx = ctxutil.Default(ctx)

	record, err := s.records.GetByID(ctx, nil, fileID)
	if err != nil {
		return err
	}
	if record.Status != types.FileStatusProcessing {
		s.log.Info("Skipping extraction, record not in processing", "file_id", fileID, "status", record.Status)
		return nil
	}

	rc, err := s.bucket.Download(ctx, gcp.NamespacePrimary, record.StorageKey, record.VersionToken)
	if err != nil {
		return fmt.Errorf("download for extraction: %w", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("read for extraction: %w", err)
	}

	return s.finalizeExtraction(ctx, record.ID, data, record.MimeType, record.Name)
}

// finalizeExtraction merges extraction output and promotes the record. The
// promotion is a compare-and-set from processing, so a record that went
// infected while extraction ran stays infected.
func (s *ingestService) finalizeExtraction(ctx context.Context, fileID uuid.UUID, data []byte, mimeType, fileName string) error {
	meta := s.extractor.Extract(ctx, data, mimeType, fileName)

	if err := s.records.UpdateFields(ctx, nil, fileID, map[string]any{
		"metadata": mustJSON(meta),
	}); err != nil {
		return fmt.Errorf("merge extracted metadata: %w", err)
	}
	promoted, err := s.records.UpdateStatusIf(ctx, nil, fileID, types.FileStatusAvailable, []types.FileStatus{types.FileStatusProcessing})
	if err != nil {
		return fmt.Errorf("promote record: %w", err)
	}
	if !promoted {
		s.log.Warn("Record left processing before promotion, leaving status untouched", "file_id", fileID)
	}
	return nil
}

func (s *ingestService) quarantine(ctx context.Context, record *types.FileRecord, storageKey string, verdict types.ScanResult) (*types.FileRecord, error) {
	copyErr := s.bucket.Copy(ctx, gcp.NamespacePrimary, storageKey, gcp.NamespaceQuarantine, storageKey, map[string]string{
		"threats":        strings.Join(verdict.Threats, ","),
		"scan_id":        verdict.ScanID,
		"quarantined_at": time.Now().UTC().Format(time.RFC3339),
	})
	_, delErr := s.bucket.Delete(ctx, gcp.NamespacePrimary, storageKey)

	verdict.QuarantineState = types.QuarantineStateComplete
	if copyErr != nil || delErr != nil {
		verdict.QuarantineState = types.QuarantineStateIncomplete
		s.log.Error("Quarantine incomplete",
			"file_id", record.ID,
			"storage_key", storageKey,
			"error", errors.Join(copyErr, delErr),
		)
	}
	if copyErr == nil {
		verdict.QuarantineKey = storageKey
	}

	moved, casErr := s.records.UpdateStatusIf(ctx, nil, record.ID, types.FileStatusInfected, []types.FileStatus{
		types.FileStatusProcessing,
		types.FileStatusAvailable,
		types.FileStatusError,
	})
	if casErr != nil {
		return nil, fmt.Errorf("mark record infected: %w", casErr)
	}
	if !moved {
		s.log.Info("Record already terminal, scan verdict recorded only", "file_id", record.ID)
	}
	if err := s.records.UpdateFields(ctx, nil, record.ID, map[string]any{
		"scan_result": mustJSON(verdict),
	}); err != nil {
		s.log.Error("Failed to attach scan verdict", "file_id", record.ID, "error", err)
	}

	s.notifyQuarantine(ctx, record.ID, storageKey, verdict)

	updated, err := s.records.GetByID(ctx, nil, record.ID)
	if err != nil {
		updated = record
	}
	return updated, &ThreatError{RecordID: record.ID, ScanID: verdict.ScanID, Threats: verdict.Threats}
}

// notifyQuarantine publishes exactly one notification per infected file.
// Delivery failure is logged and never retried or surfaced.
func (s *ingestService) notifyQuarantine(ctx context.Context, fileID uuid.UUID, storageKey string, verdict types.ScanResult) {
	if s.notifier == nil {
		return
	}
	payload := map[string]any{
		"file_id":     fileID,
		"threats":     verdict.Threats,
		"scan_id":     verdict.ScanID,
		"storage_key": storageKey,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.notifier.Publish(ctx, "file.quarantined", payload); err != nil {
		s.log.Error("Quarantine notification failed", "file_id", fileID, "error", err)
	}
}

func (s *ingestService) markError(ctx context.Context, fileID uuid.UUID, cause error) {
	s.log.Error("Marking record as errored", "file_id", fileID, "error", cause)
	if _, err := s.records.UpdateStatusIf(ctx, nil, fileID, types.FileStatusError, []types.FileStatus{
		types.FileStatusProcessing,
	}); err != nil {
		s.log.Error("Failed to mark record as errored", "file_id", fileID, "error", err)
	}
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(raw)
}
