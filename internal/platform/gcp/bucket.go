package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

// Namespace selects which bucket an operation targets. Quarantined objects
// live in a separate bucket so they are never reachable through the primary
// retrieval paths.
type Namespace string

const (
	NamespacePrimary    Namespace = "primary"
	NamespaceQuarantine Namespace = "quarantine"
)

type bucketConfig struct {
	name string
}

type ObjectVersion struct {
	VersionToken string
	Size         int64
	CreatedAt    time.Time
	IsLatest     bool
}

type ObjectAttrs struct {
	Size         int64
	ContentType  string
	Updated      time.Time
	ETag         string
	VersionToken string
	Metadata     map[string]string
}

type BucketService interface {
	Upload(ctx context.Context, ns Namespace, key string, contentType string, r io.Reader, attrs map[string]string) (string, error)
	Download(ctx context.Context, ns Namespace, key string, versionToken string) (io.ReadCloser, error)
	SignedURL(ns Namespace, key string, ttl time.Duration, versionToken string) (string, error)
	UploadURL(ns Namespace, key string, contentType string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, ns Namespace, key string) (bool, error)
	Copy(ctx context.Context, srcNS Namespace, srcKey string, dstNS Namespace, dstKey string, attrs map[string]string) error
	ListVersions(ctx context.Context, ns Namespace, key string) ([]ObjectVersion, error)
	Attrs(ctx context.Context, ns Namespace, key string) (*ObjectAttrs, error)
	Close() error
}

type bucketService struct {
	log              *logger.Logger
	storageClient    *storage.Client
	storageMode      ObjectStorageMode
	primaryBucket    bucketConfig
	quarantineBucket bucketConfig
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	storageCfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketServiceWithConfig(log, storageCfg)
}

func NewBucketServiceWithConfig(log *logger.Logger, storageCfg ObjectStorageConfig) (BucketService, error) {
	if err := ValidateObjectStorageConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	primaryBucketName := os.Getenv("PRIMARY_GCS_BUCKET_NAME")
	quarantineBucketName := os.Getenv("QUARANTINE_GCS_BUCKET_NAME")
	if primaryBucketName == "" {
		return nil, fmt.Errorf("missing env var PRIMARY_GCS_BUCKET_NAME")
	}
	if quarantineBucketName == "" {
		return nil, fmt.Errorf("missing env var QUARANTINE_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	stClient, err := newStorageClientForMode(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"primary_bucket", primaryBucketName,
		"quarantine_bucket", quarantineBucketName,
	)

	return &bucketService{
		log:              serviceLog,
		storageClient:    stClient,
		storageMode:      storageCfg.Mode,
		primaryBucket:    bucketConfig{name: primaryBucketName},
		quarantineBucket: bucketConfig{name: quarantineBucketName},
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{
			Code: ObjectStorageConfigErrorInvalidMode,
			Mode: string(storageCfg.Mode),
		}
	}
}

func (bs *bucketService) getBucketConfig(ns Namespace) (bucketConfig, error) {
	switch ns {
	case NamespacePrimary:
		return bs.primaryBucket, nil
	case NamespaceQuarantine:
		return bs.quarantineBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown bucket namespace: %s", ns)
	}
}

// Upload streams r into the namespace bucket and returns the generation of
// the new object as its version token. The write only becomes visible at
// Close; a failed write never replaces the current latest generation.
func (bs *bucketService) Upload(ctx context.Context, ns Namespace, key string, contentType string, r io.Reader, attrs map[string]string) (string, error) {
	cfg, err := bs.getBucketConfig(ns)
	if err != nil {
		return "", err
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(cfg.name).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if len(attrs) > 0 {
		w.Metadata = attrs
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	written := w.Attrs()
	if written == nil {
		return "", nil
	}
	return strconv.FormatInt(written.Generation, 10), nil
}

func (bs *bucketService) Download(ctx context.Context, ns Namespace, key string, versionToken string) (io.ReadCloser, error) {
	cfg, err := bs.getBucketConfig(ns)
	if err != nil {
		return nil, err
	}
	ctx = ctxutil.Default(ctx)

	o := bs.storageClient.Bucket(cfg.name).Object(key)
	if versionToken != "" {
		gen, err := strconv.ParseInt(versionToken, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version token %q: %w", versionToken, err)
		}
		o = o.Generation(gen)
	}
	rc, err := o.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %q in bucket %q: %w", key, cfg.name, err)
	}
	return rc, nil
}

func (bs *bucketService) SignedURL(ns Namespace, key string, ttl time.Duration, versionToken string) (string, error) {
	cfg, err := bs.getBucketConfig(ns)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	if versionToken != "" {
		opts.QueryParameters = url.Values{"generation": []string{versionToken}}
	}
	u, err := bs.storageClient.Bucket(cfg.name).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %q: %w", key, err)
	}
	return u, nil
}

// UploadURL signs a PUT URL so clients can land bytes directly in the
// bucket. The object is not scanned until upload completion is reported.
func (bs *bucketService) UploadURL(ns Namespace, key string, contentType string, ttl time.Duration) (string, error) {
	cfg, err := bs.getBucketConfig(ns)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "PUT",
		Expires: time.Now().Add(ttl),
	}
	if contentType != "" {
		opts.ContentType = contentType
	}
	u, err := bs.storageClient.Bucket(cfg.name).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign upload URL for %q: %w", key, err)
	}
	return u, nil
}

// Delete removes the object. Deleting an already-absent key is not an error;
// the bool reports whether anything was actually removed.
func (bs *bucketService) Delete(ctx context.Context, ns Namespace, key string) (bool, error) {
	cfg, err := bs.getBucketConfig(ns)
	if err != nil {
		return false, err
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	o := bs.storageClient.Bucket(cfg.name).Object(key)
	if err := o.Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, cfg.name, err)
	}
	return true, nil
}

func (bs *bucketService) Copy(ctx context.Context, srcNS Namespace, srcKey string, dstNS Namespace, dstKey string, attrs map[string]string) error {
	srcCfg, err := bs.getBucketConfig(srcNS)
	if err != nil {
		return err
	}
	dstCfg, err := bs.getBucketConfig(dstNS)
	if err != nil {
		return err
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	src := bs.storageClient.Bucket(srcCfg.name).Object(srcKey)
	dst := bs.storageClient.Bucket(dstCfg.name).Object(dstKey)
	copier := dst.CopierFrom(src)
	if len(attrs) > 0 {
		copier.Metadata = attrs
	}
	if _, err := copier.Run(ctx); err != nil {
		return fmt.Errorf("copy %s/%s -> %s/%s: %w", srcCfg.name, srcKey, dstCfg.name, dstKey, err)
	}
	return nil
}

func (bs *bucketService) ListVersions(ctx context.Context, ns Namespace, key string) ([]ObjectVersion, error) {
	cfg, err := bs.getBucketConfig(ns)
	if err != nil {
		return nil, err
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := bs.storageClient.Bucket(cfg.name).Objects(ctx, &storage.Query{Prefix: key, Versions: true})
	out := []ObjectVersion{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Name != key {
			continue
		}
		out = append(out, ObjectVersion{
			VersionToken: strconv.FormatInt(attrs.Generation, 10),
			Size:         attrs.Size,
			CreatedAt:    attrs.Created,
			IsLatest:     attrs.Deleted.IsZero(),
		})
	}
	return out, nil
}

func (bs *bucketService) Attrs(ctx context.Context, ns Namespace, key string) (*ObjectAttrs, error) {
	cfg, err := bs.getBucketConfig(ns)
	if err != nil {
		return nil, err
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	attrs, err := bs.storageClient.Bucket(cfg.name).Object(key).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stat GCS object %q in bucket %q: %w", key, cfg.name, err)
	}
	return &ObjectAttrs{
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		Updated:      attrs.Updated,
		ETag:         attrs.Etag,
		VersionToken: strconv.FormatInt(attrs.Generation, 10),
		Metadata:     attrs.Metadata,
	}, nil
}

func (bs *bucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

// ObjectKeyFor builds a unique storage key for an uploaded file: a
// year/month prefix for organization, a UUID for uniqueness, and the
// sanitized original name for operator readability.
func ObjectKeyFor(fileName string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%d/%02d/%s-%s", now.Year(), int(now.Month()), uuid.New().String(), SanitizeObjectName(fileName))
}

func SanitizeObjectName(fileName string) string {
	var b strings.Builder
	for _, c := range fileName {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.' || c == '-' || c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
