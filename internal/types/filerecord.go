package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FileStatus string

const (
	FileStatusProcessing FileStatus = "processing"
	FileStatusAvailable  FileStatus = "available"
	FileStatusInfected   FileStatus = "infected"
	FileStatusError      FileStatus = "error"
)

// FileRecord is the metadata row for one logical uploaded file. StorageKey and
// VersionToken are set once at successful store; a re-upload creates a new
// record (or a new entry in Versions), never mutates these in place.
type FileRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"not null;column:name" json:"name"`
	Size         int64          `gorm:"not null;column:size" json:"size"`
	MimeType     string         `gorm:"not null;column:mime_type" json:"mime_type"`
	StorageKey   string         `gorm:"column:storage_key;index" json:"storage_key"`
	VersionToken string         `gorm:"column:version_token" json:"version_token"`
	ContentHash  string         `gorm:"column:content_hash" json:"content_hash"`
	Status       FileStatus     `gorm:"not null;column:status;index" json:"status"`
	UploadedAt   time.Time      `gorm:"not null;column:uploaded_at" json:"uploaded_at"`
	Metadata     datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	Tags         datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`
	ScanResult   datatypes.JSON `gorm:"type:jsonb;column:scan_result" json:"scan_result"`
	Versions     datatypes.JSON `gorm:"type:jsonb;column:versions" json:"versions"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (FileRecord) TableName() string {
	return "file_record"
}

func (f *FileRecord) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	if f.Status == "" {
		f.Status = FileStatusProcessing
	}
	return nil
}

func (f *FileRecord) FileMetadata() FileMetadata {
	var m FileMetadata
	if len(f.Metadata) > 0 {
		_ = json.Unmarshal(f.Metadata, &m)
	}
	return m
}

func (f *FileRecord) SetFileMetadata(m FileMetadata) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	f.Metadata = raw
	return nil
}

func (f *FileRecord) TagList() []string {
	var tags []string
	if len(f.Tags) > 0 {
		_ = json.Unmarshal(f.Tags, &tags)
	}
	return tags
}

func (f *FileRecord) SetTagList(tags []string) error {
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	f.Tags = raw
	return nil
}

func (f *FileRecord) ScanVerdict() *ScanResult {
	if len(f.ScanResult) == 0 {
		return nil
	}
	var sr ScanResult
	if err := json.Unmarshal(f.ScanResult, &sr); err != nil {
		return nil
	}
	return &sr
}

func (f *FileRecord) VersionList() []FileVersion {
	var vs []FileVersion
	if len(f.Versions) > 0 {
		_ = json.Unmarshal(f.Versions, &vs)
	}
	return vs
}

// FileVersion is one prior (or current) stored generation of a file. Exactly
// one entry carries IsLatest.
type FileVersion struct {
	VersionToken string    `json:"version_token"`
	CreatedAt    time.Time `json:"created_at"`
	Size         int64     `json:"size"`
	IsLatest     bool      `json:"is_latest"`
}
