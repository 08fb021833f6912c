package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func newTestValidator(t *testing.T) ValidatorService {
	t.Helper()
	t.Setenv("VALIDATION_POLICY_FILE", "")
	v, err := NewValidatorService(testLogger(t))
	if err != nil {
		t.Fatalf("NewValidatorService: %v", err)
	}
	return v
}

func TestValidateUploadSizeCeiling(t *testing.T) {
	v := newTestValidator(t)

	if res := v.ValidateUpload("big.pdf", MaxUploadSize, "application/pdf"); !res.Valid {
		t.Fatalf("size == max should pass: got rejection %q", res.Message)
	}
	if res := v.ValidateUpload("big.pdf", MaxUploadSize+1, "application/pdf"); res.Valid {
		t.Fatalf("size > max should fail")
	}
	if res := v.ValidateUpload("zero.pdf", 0, "application/pdf"); !res.Valid {
		t.Fatalf("zero size should pass: got rejection %q", res.Message)
	}
}

func TestValidateUploadMIMEAllowList(t *testing.T) {
	v := newTestValidator(t)

	allowed := []string{
		"application/pdf",
		"text/plain",
		"text/csv",
		"image/jpeg",
		"image/webp",
		"application/zip",
	}
	for _, m := range allowed {
		if res := v.ValidateUpload("a.dat", 100, m); !res.Valid {
			t.Fatalf("mime %q should pass: got rejection %q", m, res.Message)
		}
	}

	if res := v.ValidateUpload("a.dat", 100, "application/x-msdownload"); res.Valid {
		t.Fatalf("mime outside allow-list should fail")
	}
	if res := v.ValidateUpload("a.dat", 100, ""); res.Valid {
		t.Fatalf("empty mime should fail")
	}
}

func TestValidateUploadDeniedExtensionsCasePermuted(t *testing.T) {
	v := newTestValidator(t)

	for _, name := range []string{"run.exe", "run.EXE", "run.Exe", "script.Ps1", "tool.jAr"} {
		if res := v.ValidateUpload(name, 100, "application/pdf"); res.Valid {
			t.Fatalf("deny-listed extension %q should fail", name)
		}
	}
}

func TestValidateUploadExtensionEdgeCases(t *testing.T) {
	v := newTestValidator(t)

	// No extension never matches the deny-list.
	if res := v.ValidateUpload("README", 100, "text/plain"); !res.Valid {
		t.Fatalf("missing extension should pass: got rejection %q", res.Message)
	}
	// Only the substring after the final dot counts.
	if res := v.ValidateUpload("archive.exe.txt", 100, "text/plain"); !res.Valid {
		t.Fatalf("inner .exe should not trigger deny-list: got rejection %q", res.Message)
	}
	if res := v.ValidateUpload("archive.txt.exe", 100, "text/plain"); res.Valid {
		t.Fatalf("final .exe should fail")
	}
}

func TestValidateUploadCheckOrder(t *testing.T) {
	v := newTestValidator(t)

	// Oversized AND bad mime AND denied extension: size check fires first.
	res := v.ValidateUpload("run.exe", MaxUploadSize+1, "application/octet-stream")
	if res.Valid {
		t.Fatalf("should fail")
	}
	if want := "file size exceeds"; !strings.HasPrefix(res.Message, want) {
		t.Fatalf("message: want prefix %q got=%q", want, res.Message)
	}
}

func TestValidatorPolicyOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	overlay := []byte("max_file_size: 1024\nallowed_mime_types:\n  - text/plain\n")
	if err := os.WriteFile(path, overlay, 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("VALIDATION_POLICY_FILE", path)

	v, err := NewValidatorService(testLogger(t))
	if err != nil {
		t.Fatalf("NewValidatorService: %v", err)
	}

	if res := v.ValidateUpload("a.txt", 2048, "text/plain"); res.Valid {
		t.Fatalf("overlay max size should apply")
	}
	if res := v.ValidateUpload("a.pdf", 100, "application/pdf"); res.Valid {
		t.Fatalf("overlay allow-list should replace the default")
	}
	if res := v.ValidateUpload("a.txt", 100, "text/plain"); !res.Valid {
		t.Fatalf("text/plain should still pass: got rejection %q", res.Message)
	}
	// Deny-list untouched by this overlay.
	if res := v.ValidateUpload("a.sh", 100, "text/plain"); res.Valid {
		t.Fatalf("default deny-list should survive a partial overlay")
	}
}
