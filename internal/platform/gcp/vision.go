package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

const maxVisionLabels = 20

type Vision interface {
	DetectLabelsAndText(ctx context.Context, img []byte) (*LabelTextResult, error)
	Close() error
}

type LabelTextResult struct {
	Labels   []DetectedLabel
	FullText string
}

type DetectedLabel struct {
	Name       string
	Confidence float64
	Box        *BoundingRect
}

// BoundingRect is a normalized (0..1) rectangle in image coordinates.
type BoundingRect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

type visionService struct {
	log          *logger.Logger
	visionClient *vision.ImageAnnotatorClient
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	ctx := context.Background()
	vClient, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionService{log: slog, visionClient: vClient}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.visionClient == nil {
		return nil
	}
	return s.visionClient.Close()
}

// DetectLabelsAndText runs label detection, object localization and text
// detection over a single image in one batched call.
func (s *visionService) DetectLabelsAndText(ctx context.Context, img []byte) (*LabelTextResult, error) {
	if len(img) == 0 {
		return &LabelTextResult{}, nil
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: maxVisionLabels},
			{Type: visionpb.Feature_OBJECT_LOCALIZATION},
			{Type: visionpb.Feature_TEXT_DETECTION},
		},
	}
	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.visionClient.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &LabelTextResult{}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	boxes := map[string]*BoundingRect{}
	for _, obj := range r0.LocalizedObjectAnnotations {
		if obj == nil || obj.Name == "" {
			continue
		}
		name := strings.ToLower(obj.Name)
		if _, seen := boxes[name]; seen {
			continue
		}
		boxes[name] = rectFromPoly(obj.BoundingPoly)
	}

	labels := make([]DetectedLabel, 0, len(r0.LabelAnnotations))
	for _, la := range r0.LabelAnnotations {
		if la == nil || la.Description == "" {
			continue
		}
		labels = append(labels, DetectedLabel{
			Name:       la.Description,
			Confidence: float64(la.Score),
			Box:        boxes[strings.ToLower(la.Description)],
		})
	}

	fullText := ""
	if r0.FullTextAnnotation != nil {
		fullText = strings.TrimSpace(r0.FullTextAnnotation.Text)
	} else if len(r0.TextAnnotations) > 0 && r0.TextAnnotations[0] != nil {
		fullText = strings.TrimSpace(r0.TextAnnotations[0].Description)
	}

	return &LabelTextResult{Labels: labels, FullText: fullText}, nil
}

func rectFromPoly(poly *visionpb.BoundingPoly) *BoundingRect {
	if poly == nil || len(poly.NormalizedVertices) == 0 {
		return nil
	}
	minX, minY := 1.0, 1.0
	maxX, maxY := 0.0, 0.0
	for _, v := range poly.NormalizedVertices {
		if v == nil {
			continue
		}
		x, y := float64(v.X), float64(v.Y)
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}
	if maxX <= minX || maxY <= minY {
		return nil
	}
	return &BoundingRect{Top: minY, Left: minX, Width: maxX - minX, Height: maxY - minY}
}
