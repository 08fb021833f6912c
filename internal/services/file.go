package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/gcp"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/repos"
	"github.com/yungbote/filevault-backend/internal/types"
)

// ErrNotServable is returned when a download is requested for a record that
// is not in the available state.
var ErrNotServable = errors.New("file is not available for download")

type FileConfig struct {
	DownloadTTL time.Duration
}

type FileService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.FileRecord, error)
	List(ctx context.Context) ([]*types.FileRecord, error)
	DownloadURL(ctx context.Context, id uuid.UUID) (string, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceTags(ctx context.Context, id uuid.UUID, tags []string) (*types.FileRecord, error)
	ListVersions(ctx context.Context, id uuid.UUID) ([]gcp.ObjectVersion, error)
}

type fileService struct {
	log     *logger.Logger
	cfg     FileConfig
	bucket  gcp.BucketService
	records repos.FileRecordRepo
}

func NewFileService(log *logger.Logger, cfg FileConfig, bucket gcp.BucketService, records repos.FileRecordRepo) (FileService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if bucket == nil || records == nil {
		return nil, fmt.Errorf("bucket service and record repo required")
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = time.Hour
	}
	return &fileService{
		log:     log.With("service", "FileService"),
		cfg:     cfg,
		bucket:  bucket,
		records: records,
	}, nil
}

func (s *fileService) Get(ctx context.Context, id uuid.UUID) (*types.FileRecord, error) {
	return s.records.GetByID(ctxutil.Default(ctx), nil, id)
}

func (s *fileService) List(ctx context.Context) ([]*types.FileRecord, error) {
	return s.records.List(ctxutil.Default(ctx), nil)
}

func (s *fileService) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	record, err := s.records.GetByID(ctxutil.Default(ctx), nil, id)
	if err != nil {
		return "", err
	}
	if record.Status != types.FileStatusAvailable {
		return "", ErrNotServable
	}
	return s.bucket.SignedURL(gcp.NamespacePrimary, record.StorageKey, s.cfg.DownloadTTL, record.VersionToken)
}

// Delete removes the bytes and the record. Object deletes are idempotent, so
// retrying after a partial failure is safe.
func (s *fileService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx = ctxutil.Default(ctx)

	record, err := s.records.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}

	if record.StorageKey != "" {
		if _, err := s.bucket.Delete(ctx, gcp.NamespacePrimary, record.StorageKey); err != nil {
			return fmt.Errorf("delete stored bytes: %w", err)
		}
	}
	if sr := record.ScanVerdict(); sr != nil && sr.QuarantineKey != "" {
		if _, err := s.bucket.Delete(ctx, gcp.NamespaceQuarantine, sr.QuarantineKey); err != nil {
			s.log.Error("Failed to delete quarantined copy", "file_id", id, "error", err)
		}
	}

	return s.records.Delete(ctx, nil, id)
}

func (s *fileService) ReplaceTags(ctx context.Context, id uuid.UUID, tags []string) (*types.FileRecord, error) {
	ctx = ctxutil.Default(ctx)

	record, err := s.records.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	if err := record.SetTagList(tags); err != nil {
		return nil, err
	}
	if err := s.records.UpdateFields(ctx, nil, id, map[string]any{
		"tags": record.Tags,
	}); err != nil {
		return nil, err
	}
	return s.records.GetByID(ctx, nil, id)
}

func (s *fileService) ListVersions(ctx context.Context, id uuid.UUID) ([]gcp.ObjectVersion, error) {
	ctx = ctxutil.Default(ctx)

	record, err := s.records.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if record.StorageKey == "" {
		return []gcp.ObjectVersion{}, nil
	}
	return s.bucket.ListVersions(ctx, gcp.NamespacePrimary, record.StorageKey)
}
