package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/utils"
)

// MaxUploadSize is the single-upload ceiling of the backing object store.
const MaxUploadSize = 5 * 1024 * 1024 * 1024

var defaultAllowedMIMETypes = []string{
	// Documents
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"text/csv",
	// Images
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/svg+xml",
	"image/webp",
	// Archives
	"application/zip",
	"application/x-rar-compressed",
}

var defaultDeniedExtensions = []string{
	"exe", "bat", "cmd", "sh", "js", "vbs", "ps1", "jar", "msi", "com", "scr",
}

// ValidationPolicy is the effective upload policy. Any field left zero in a
// YAML overlay keeps its default.
type ValidationPolicy struct {
	MaxFileSize      int64    `yaml:"max_file_size"`
	AllowedMIMETypes []string `yaml:"allowed_mime_types"`
	DeniedExtensions []string `yaml:"denied_extensions"`
}

// ValidationResult reports pass/fail plus a reason a caller can show verbatim.
type ValidationResult struct {
	Valid   bool
	Message string
}

type ValidatorService interface {
	ValidateUpload(fileName string, fileSize int64, mimeType string) ValidationResult
	Policy() ValidationPolicy
}

type validatorService struct {
	log    *logger.Logger
	policy ValidationPolicy

	allowedMIME map[string]struct{}
	deniedExt   map[string]struct{}
}

// NewValidatorService builds the policy from defaults, optionally overlaid
// with the YAML file named by VALIDATION_POLICY_FILE.
func NewValidatorService(log *logger.Logger) (ValidatorService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "ValidatorService")

	policy := ValidationPolicy{
		MaxFileSize:      MaxUploadSize,
		AllowedMIMETypes: defaultAllowedMIMETypes,
		DeniedExtensions: defaultDeniedExtensions,
	}

	if path := strings.TrimSpace(utils.GetEnv("VALIDATION_POLICY_FILE", "", nil)); path != "" {
		overlay, err := loadPolicyOverlay(path)
		if err != nil {
			return nil, fmt.Errorf("validation policy overlay: %w", err)
		}
		if overlay.MaxFileSize > 0 {
			policy.MaxFileSize = overlay.MaxFileSize
		}
		if len(overlay.AllowedMIMETypes) > 0 {
			policy.AllowedMIMETypes = overlay.AllowedMIMETypes
		}
		if len(overlay.DeniedExtensions) > 0 {
			policy.DeniedExtensions = overlay.DeniedExtensions
		}
		slog.Info("Loaded validation policy overlay", "path", path)
	}

	allowed := make(map[string]struct{}, len(policy.AllowedMIMETypes))
	for _, m := range policy.AllowedMIMETypes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	denied := make(map[string]struct{}, len(policy.DeniedExtensions))
	for _, e := range policy.DeniedExtensions {
		denied[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = struct{}{}
	}

	return &validatorService{
		log:         slog,
		policy:      policy,
		allowedMIME: allowed,
		deniedExt:   denied,
	}, nil
}

func loadPolicyOverlay(path string) (ValidationPolicy, error) {
	var overlay ValidationPolicy
	raw, err := os.ReadFile(path)
	if err != nil {
		return overlay, err
	}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return overlay, err
	}
	return overlay, nil
}

// ValidateUpload checks size, MIME allow-list, then extension deny-list, in
// that order, stopping at the first failure. Pure function of its inputs and
// the configured policy.
func (s *validatorService) ValidateUpload(fileName string, fileSize int64, mimeType string) ValidationResult {
	if fileSize > s.policy.MaxFileSize {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("file size exceeds maximum allowed (%d bytes)", s.policy.MaxFileSize),
		}
	}

	if _, ok := s.allowedMIME[strings.ToLower(strings.TrimSpace(mimeType))]; !ok {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("file type %q not allowed", mimeType),
		}
	}

	// Missing extension yields "" which never matches the deny-list.
	ext := ""
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		ext = strings.ToLower(fileName[i+1:])
	}
	if _, ok := s.deniedExt[ext]; ok {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("file extension %q is potentially dangerous", ext),
		}
	}

	return ValidationResult{Valid: true, Message: "file passed validation"}
}

func (s *validatorService) Policy() ValidationPolicy {
	return s.policy
}
