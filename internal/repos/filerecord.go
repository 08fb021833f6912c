package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/types"
)

type FileRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.FileRecord) (*types.FileRecord, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FileRecord, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.FileRecord, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status types.FileStatus) ([]*types.FileRecord, error)
	GetByStorageKey(ctx context.Context, tx *gorm.DB, storageKey string) (*types.FileRecord, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	// UpdateStatusIf sets status to next only while the row's current status is
	// one of allowedFrom. Returns false when the row was in some other state,
	// so a record already marked infected can never be flipped back.
	UpdateStatusIf(ctx context.Context, tx *gorm.DB, id uuid.UUID, next types.FileStatus, allowedFrom []types.FileStatus) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type fileRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRecordRepo(db *gorm.DB, baseLog *logger.Logger) FileRecordRepo {
	repoLog := baseLog.With("repo", "FileRecordRepo")
	return &fileRecordRepo{db: db, log: repoLog}
}

func (r *fileRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.FileRecord) (*types.FileRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *fileRecordRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FileRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var record types.FileRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *fileRecordRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.FileRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.FileRecord
	if err := transaction.WithContext(ctx).
		Order("uploaded_at ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRecordRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status types.FileStatus) ([]*types.FileRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.FileRecord
	if err := transaction.WithContext(ctx).
		Where("status = ?", status).
		Order("uploaded_at ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByStorageKey returns the first record whose storage_key matches, in
// upload order. Keys embed a UUID so duplicates do not occur in practice;
// if one ever did, the earliest upload wins.
func (r *fileRecordRepo) GetByStorageKey(ctx context.Context, tx *gorm.DB, storageKey string) (*types.FileRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var record types.FileRecord
	if err := transaction.WithContext(ctx).
		Where("storage_key = ?", storageKey).
		Order("uploaded_at ASC, created_at ASC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *fileRecordRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()

	if err := transaction.WithContext(ctx).
		Model(&types.FileRecord{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *fileRecordRepo) UpdateStatusIf(ctx context.Context, tx *gorm.DB, id uuid.UUID, next types.FileStatus, allowedFrom []types.FileStatus) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(allowedFrom) == 0 {
		return false, nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.FileRecord{}).
		Where("id = ? AND status IN ?", id, allowedFrom).
		Updates(map[string]any{
			"status":     next,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *fileRecordRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.FileRecord{}).Error; err != nil {
		return err
	}
	return nil
}
