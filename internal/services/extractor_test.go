package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/yungbote/filevault-backend/internal/platform/gcp"
)

type fakeVision struct {
	result *gcp.LabelTextResult
	err    error
}

func (f *fakeVision) DetectLabelsAndText(ctx context.Context, img []byte) (*gcp.LabelTextResult, error) {
	return f.result, f.err
}
func (f *fakeVision) Close() error { return nil }

type fakeDocument struct {
	result *gcp.DocumentAnalysis
	err    error
}

func (f *fakeDocument) AnalyzeDocument(ctx context.Context, data []byte, mimeType string) (*gcp.DocumentAnalysis, error) {
	return f.result, f.err
}
func (f *fakeDocument) Close() error { return nil }

func newTestExtractor(t *testing.T, vision gcp.Vision, document gcp.Document) ExtractorService {
	t.Helper()
	e, err := NewExtractorService(testLogger(t), vision, document)
	if err != nil {
		t.Fatalf("NewExtractorService: %v", err)
	}
	return e
}

func TestExtractDispatchUnknownType(t *testing.T) {
	e := newTestExtractor(t, nil, nil)

	meta := e.Extract(context.Background(), []byte("zip bytes"), "application/zip", "a.zip")
	if meta.ContentType != "application/zip" {
		t.Fatalf("content type: want=application/zip got=%q", meta.ContentType)
	}
	if meta.ExtractedText != "" || meta.ImageData != nil || meta.DocumentData != nil {
		t.Fatalf("unknown type must carry no derived fields: %+v", meta)
	}
}

func TestExtractImage(t *testing.T) {
	e := newTestExtractor(t, &fakeVision{
		result: &gcp.LabelTextResult{
			Labels: []gcp.DetectedLabel{
				{Name: "Cat", Confidence: 0.97, Box: &gcp.BoundingRect{Top: 0.1, Left: 0.2, Width: 0.5, Height: 0.4}},
				{Name: "Animal", Confidence: 0.9},
			},
			FullText: "adopt me at cats@shelter.org",
		},
	}, nil)

	meta := e.Extract(context.Background(), []byte("png"), "image/png", "cat.png")
	if meta.ContentType != "image" {
		t.Fatalf("content type: want=image got=%q", meta.ContentType)
	}
	if meta.ImageData == nil || len(meta.ImageData.DetectedObjects) != 2 {
		t.Fatalf("detected objects: want=2 got=%+v", meta.ImageData)
	}
	if !meta.ImageData.ContainsText {
		t.Fatalf("contains text: want=true")
	}
	if meta.ImageData.DetectedObjects[0].BoundingBox == nil {
		t.Fatalf("bounding box should carry over")
	}
	if len(meta.Categories) != 1 || meta.Categories[0] != "Cat" {
		t.Fatalf("categories: want=[Cat] got=%v", meta.Categories)
	}
	emails := entitiesOfType(meta.Entities, "EMAIL")
	if len(emails) != 1 || emails[0].Text != "cats@shelter.org" {
		t.Fatalf("entities from image text: want one email got=%v", meta.Entities)
	}
}

func TestExtractImageLabelThresholds(t *testing.T) {
	e := newTestExtractor(t, &fakeVision{
		result: &gcp.LabelTextResult{
			Labels: []gcp.DetectedLabel{
				{Name: "Cat", Confidence: 0.95},
				{Name: "Animal", Confidence: 0.75},
				{Name: "Blur", Confidence: 0.10},
			},
		},
	}, nil)

	meta := e.Extract(context.Background(), []byte("png"), "image/png", "cat.png")
	if meta.ImageData == nil || len(meta.ImageData.DetectedObjects) != 2 {
		t.Fatalf("labels below 0.70 must be dropped: got=%+v", meta.ImageData)
	}
	for _, o := range meta.ImageData.DetectedObjects {
		if o.Name == "Blur" {
			t.Fatalf("low-confidence label kept as detected object: %+v", o)
		}
	}
	if len(meta.Categories) != 1 || meta.Categories[0] != "Cat" {
		t.Fatalf("only labels above 0.90 become categories: want=[Cat] got=%v", meta.Categories)
	}
}

func TestExtractImageDegradesOnBackendError(t *testing.T) {
	e := newTestExtractor(t, &fakeVision{err: fmt.Errorf("quota exceeded")}, nil)

	meta := e.Extract(context.Background(), []byte("png"), "image/png", "cat.png")
	if meta.ContentType != "image" {
		t.Fatalf("content type: want=image got=%q", meta.ContentType)
	}
	if meta.ExtractedText != "" || meta.ImageData != nil || len(meta.Entities) != 0 {
		t.Fatalf("degraded metadata must be content-type-only: %+v", meta)
	}
}

func TestExtractImageDegradesWithoutBackend(t *testing.T) {
	e := newTestExtractor(t, nil, nil)

	meta := e.Extract(context.Background(), []byte("png"), "image/jpeg", "cat.jpg")
	if meta.ContentType != "image" {
		t.Fatalf("content type: want=image got=%q", meta.ContentType)
	}
}

func TestExtractDocument(t *testing.T) {
	e := newTestExtractor(t, nil, &fakeDocument{
		result: &gcp.DocumentAnalysis{
			Text:          "Invoice Number: 123\nContact billing@corp.com",
			KeyValuePairs: map[string]string{"Invoice Number": "123"},
			Tables: []gcp.DocumentTable{
				{PageNumber: 1, Headers: []string{"Item", "Price"}, Rows: [][]string{{"Widget", "9.99"}}},
			},
			PageCount: 2,
		},
	})

	meta := e.Extract(context.Background(), []byte("pdf"), "application/pdf", "invoice.pdf")
	if meta.ContentType != "document" {
		t.Fatalf("content type: want=document got=%q", meta.ContentType)
	}
	if meta.DocumentData == nil {
		t.Fatalf("document data missing")
	}
	if meta.DocumentData.DocumentType != "invoice" {
		t.Fatalf("document type: want=invoice got=%q", meta.DocumentData.DocumentType)
	}
	if meta.DocumentData.PageCount != 2 {
		t.Fatalf("page count: want=2 got=%d", meta.DocumentData.PageCount)
	}
	if len(meta.DocumentData.Tables) != 1 || meta.DocumentData.Tables[0].Headers[1] != "Price" {
		t.Fatalf("tables: %+v", meta.DocumentData.Tables)
	}
	if len(entitiesOfType(meta.Entities, "EMAIL")) != 1 {
		t.Fatalf("entities from document text: want one email got=%v", meta.Entities)
	}
}

func TestExtractDocumentSpreadsheetDispatch(t *testing.T) {
	e := newTestExtractor(t, nil, &fakeDocument{result: &gcp.DocumentAnalysis{Text: "numbers"}})

	meta := e.Extract(context.Background(), []byte("xlsx"), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "sheet.xlsx")
	if meta.ContentType != "document" {
		t.Fatalf("content type: want=document got=%q", meta.ContentType)
	}
}

func TestExtractDocumentDegradesOnBackendError(t *testing.T) {
	e := newTestExtractor(t, nil, &fakeDocument{err: fmt.Errorf("processor offline")})

	meta := e.Extract(context.Background(), []byte("pdf"), "application/pdf", "contract.pdf")
	if meta.ContentType != "document" {
		t.Fatalf("content type: want=document got=%q", meta.ContentType)
	}
	if meta.DocumentData != nil || meta.ExtractedText != "" {
		t.Fatalf("degraded metadata must be content-type-only: %+v", meta)
	}
}

func TestClassifyDocument(t *testing.T) {
	cases := []struct {
		name string
		text string
		kvs  map[string]string
		want string
	}{
		{"invoice text", "Invoice Number: 123", nil, "invoice"},
		{"invoice key", "totals below", map[string]string{"Invoice #": "9"}, "invoice"},
		{"receipt text", "Thanks! Your receipt is attached", nil, "receipt"},
		{"receipt key", "store copy", map[string]string{"Total Amount": "5.00"}, "receipt"},
		{"contract", "This Agreement is entered into", nil, "contract"},
		{"resume", "Curriculum Vitae of Jane", nil, "resume"},
		{"default", "weekly status report", nil, "document"},
		{"invoice wins over contract", "invoice under this agreement", nil, "invoice"},
	}
	for _, tc := range cases {
		if got := classifyDocument(tc.text, tc.kvs); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}
