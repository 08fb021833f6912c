package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/platform/gcp"
	"github.com/yungbote/filevault-backend/internal/types"
)

func newFileHarness(t *testing.T) (FileService, *fakeBucket, *fakeRecordRepo) {
	t.Helper()
	bucket := newFakeBucket()
	repo := newFakeRecordRepo()
	fs, err := NewFileService(testLogger(t), FileConfig{}, bucket, repo)
	if err != nil {
		t.Fatalf("NewFileService: %v", err)
	}
	return fs, bucket, repo
}

func TestDownloadURLRequiresAvailable(t *testing.T) {
	fs, bucket, repo := newFileHarness(t)

	key := "2026/08/x-doc.pdf"
	bucket.objects[gcp.NamespacePrimary][key] = []byte("pdf bytes")
	rec := &types.FileRecord{Name: "doc.pdf", StorageKey: key, Status: types.FileStatusProcessing}
	if _, err := repo.Create(context.Background(), nil, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := fs.DownloadURL(context.Background(), rec.ID); !errors.Is(err, ErrNotServable) {
		t.Fatalf("processing record: want ErrNotServable got=%v", err)
	}

	rec.Status = types.FileStatusAvailable
	url, err := fs.DownloadURL(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.Contains(url, key) {
		t.Fatalf("url should reference the storage key: got=%q", url)
	}
}

func TestDownloadURLInfectedNeverServable(t *testing.T) {
	fs, _, repo := newFileHarness(t)

	rec := &types.FileRecord{Name: "bad.pdf", StorageKey: "2026/08/x-bad.pdf", Status: types.FileStatusInfected}
	if _, err := repo.Create(context.Background(), nil, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := fs.DownloadURL(context.Background(), rec.ID); !errors.Is(err, ErrNotServable) {
		t.Fatalf("infected record: want ErrNotServable got=%v", err)
	}
}

func TestDeleteRemovesBytesAndRecord(t *testing.T) {
	fs, bucket, repo := newFileHarness(t)

	key := "2026/08/x-gone.txt"
	bucket.objects[gcp.NamespacePrimary][key] = []byte("bytes")
	rec := &types.FileRecord{Name: "gone.txt", StorageKey: key, Status: types.FileStatusAvailable}
	if _, err := repo.Create(context.Background(), nil, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := fs.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := bucket.objects[gcp.NamespacePrimary][key]; ok {
		t.Fatalf("bytes must be removed")
	}
	if _, err := repo.GetByID(context.Background(), nil, rec.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("record must be removed: got err=%v", err)
	}

	// Second delete reports not-found instead of throwing on absent bytes.
	if err := fs.Delete(context.Background(), rec.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second delete: want ErrRecordNotFound got=%v", err)
	}
}

func TestReplaceTags(t *testing.T) {
	fs, _, repo := newFileHarness(t)

	rec := &types.FileRecord{Name: "t.txt", Status: types.FileStatusAvailable}
	if _, err := repo.Create(context.Background(), nil, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	updated, err := fs.ReplaceTags(context.Background(), rec.ID, []string{"finance", "q3"})
	if err != nil {
		t.Fatalf("ReplaceTags: %v", err)
	}
	tags := updated.TagList()
	if len(tags) != 2 || tags[0] != "finance" {
		t.Fatalf("tags: want=[finance q3] got=%v", tags)
	}

	updated, err = fs.ReplaceTags(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("ReplaceTags clear: %v", err)
	}
	if got := updated.TagList(); len(got) != 0 {
		t.Fatalf("tags after clear: want=[] got=%v", got)
	}
}
