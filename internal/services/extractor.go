package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/gcp"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/types"
)

// ExtractorService derives FileMetadata from file bytes, dispatching on MIME
// type. It never returns an error for backend failures: any failure in the
// image or document pipeline degrades to content-type-only metadata so that
// extraction can never block ingestion.
// Vision label thresholds: labels below minLabelConfidence are discarded,
// and only labels above categoryConfidence become searchable categories.
const (
	minLabelConfidence = 0.70
	categoryConfidence = 0.90
)

type ExtractorService interface {
	Extract(ctx context.Context, data []byte, mimeType, fileName string) types.FileMetadata
}

type extractorService struct {
	log      *logger.Logger
	vision   gcp.Vision
	document gcp.Document
}

func NewExtractorService(log *logger.Logger, vision gcp.Vision, document gcp.Document) (ExtractorService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &extractorService{
		log:      log.With("service", "ExtractorService"),
		vision:   vision,
		document: document,
	}, nil
}

func (s *extractorService) Extract(ctx context.Context, data []byte, mimeType, fileName string) types.FileMetadata {
	ctx = ctxutil.Default(ctx)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		meta, err := s.extractImage(ctx, data)
		if err != nil {
			s.log.Warn("Image extraction degraded", "file", fileName, "error", err)
			return types.FileMetadata{ContentType: "image"}
		}
		return meta
	case isDocumentMIME(mimeType):
		meta, err := s.extractDocument(ctx, data, mimeType)
		if err != nil {
			s.log.Warn("Document extraction degraded", "file", fileName, "error", err)
			return types.FileMetadata{ContentType: "document"}
		}
		return meta
	default:
		return types.FileMetadata{ContentType: mimeType}
	}
}

func isDocumentMIME(mimeType string) bool {
	if mimeType == "application/pdf" {
		return true
	}
	return strings.Contains(mimeType, "document") || strings.Contains(mimeType, "spreadsheet")
}

func (s *extractorService) extractImage(ctx context.Context, data []byte) (types.FileMetadata, error) {
	if s.vision == nil {
		return types.FileMetadata{}, fmt.Errorf("vision backend not configured")
	}
	res, err := s.vision.DetectLabelsAndText(ctx, data)
	if err != nil {
		return types.FileMetadata{}, err
	}

	img := &types.ImageMetadata{
		ContainsText:       res.FullText != "",
		ExtractedImageText: res.FullText,
	}
	var categories []string
	for _, l := range res.Labels {
		if l.Confidence < minLabelConfidence {
			continue
		}
		obj := types.DetectedObject{Name: l.Name, Confidence: l.Confidence}
		if l.Box != nil {
			obj.BoundingBox = &types.BoundingBox{
				Top:    l.Box.Top,
				Left:   l.Box.Left,
				Width:  l.Box.Width,
				Height: l.Box.Height,
			}
		}
		img.DetectedObjects = append(img.DetectedObjects, obj)
		if l.Confidence > categoryConfidence {
			categories = append(categories, l.Name)
		}
	}

	return types.FileMetadata{
		ContentType:   "image",
		ExtractedText: res.FullText,
		Entities:      ExtractEntities(res.FullText),
		Categories:    dedupeStrings(categories),
		ImageData:     img,
	}, nil
}

func (s *extractorService) extractDocument(ctx context.Context, data []byte, mimeType string) (types.FileMetadata, error) {
	if s.document == nil {
		return types.FileMetadata{}, fmt.Errorf("document backend not configured")
	}
	res, err := s.document.AnalyzeDocument(ctx, data, mimeType)
	if err != nil {
		return types.FileMetadata{}, err
	}

	docType := classifyDocument(res.Text, res.KeyValuePairs)
	doc := &types.DocumentMetadata{
		PageCount:     res.PageCount,
		DocumentType:  docType,
		KeyValuePairs: res.KeyValuePairs,
	}
	for i, t := range res.Tables {
		doc.Tables = append(doc.Tables, types.Table{
			ID:         fmt.Sprintf("table-%d", i+1),
			PageNumber: t.PageNumber,
			Headers:    t.Headers,
			Rows:       t.Rows,
		})
	}

	return types.FileMetadata{
		ContentType:   "document",
		ExtractedText: res.Text,
		Entities:      ExtractEntities(res.Text),
		Categories:    []string{docType},
		DocumentData:  doc,
	}, nil
}

// classifyDocument is a fixed, ordered heuristic over the lower-cased text
// and form keys. First match wins; several markers may co-occur, so order
// matters.
func classifyDocument(text string, keyValuePairs map[string]string) string {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "invoice") {
		return "invoice"
	}
	for k := range keyValuePairs {
		if strings.Contains(strings.ToLower(k), "invoice") {
			return "invoice"
		}
	}

	if strings.Contains(lower, "receipt") {
		return "receipt"
	}
	for k := range keyValuePairs {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "total") && strings.Contains(lk, "amount") {
			return "receipt"
		}
	}

	if strings.Contains(lower, "contract") || strings.Contains(lower, "agreement") {
		return "contract"
	}

	if strings.Contains(lower, "resume") || strings.Contains(lower, "cv") || strings.Contains(lower, "curriculum vitae") {
		return "resume"
	}

	return "document"
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
