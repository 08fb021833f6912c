package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

type Document interface {
	AnalyzeDocument(ctx context.Context, data []byte, mimeType string) (*DocumentAnalysis, error)
	Close() error
}

type DocumentAnalysis struct {
	Text          string
	KeyValuePairs map[string]string
	Tables        []DocumentTable
	PageCount     int
}

type DocumentTable struct {
	PageNumber int
	Headers    []string
	Rows       [][]string
}

type documentService struct {
	log       *logger.Logger
	docClient *documentai.DocumentProcessorClient
	processor string
}

func NewDocument(log *logger.Logger) (Document, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Document")

	projectID := strings.TrimSpace(os.Getenv("DOCUMENTAI_PROJECT_ID"))
	processorID := strings.TrimSpace(os.Getenv("DOCUMENTAI_PROCESSOR_ID"))
	if projectID == "" {
		return nil, fmt.Errorf("missing env var DOCUMENTAI_PROJECT_ID")
	}
	if processorID == "" {
		return nil, fmt.Errorf("missing env var DOCUMENTAI_PROCESSOR_ID")
	}
	location := strings.TrimSpace(os.Getenv("DOCUMENTAI_LOCATION"))
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	ctx := context.Background()
	docOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, docOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	slog.Info("Document AI initialized", "endpoint", endpoint)

	return &documentService{
		log:       slog,
		docClient: c,
		processor: fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID),
	}, nil
}

func (s *documentService) Close() error {
	if s == nil || s.docClient == nil {
		return nil
	}
	return s.docClient.Close()
}

func (s *documentService) AnalyzeDocument(ctx context.Context, data []byte, mimeType string) (*DocumentAnalysis, error) {
	if len(data) == 0 {
		return &DocumentAnalysis{KeyValuePairs: map[string]string{}}, nil
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: s.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}
	resp, err := s.docClient.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return &DocumentAnalysis{KeyValuePairs: map[string]string{}}, nil
	}
	return buildDocumentAnalysis(resp.Document), nil
}

func buildDocumentAnalysis(doc *documentaipb.Document) *DocumentAnalysis {
	out := &DocumentAnalysis{
		Text:          strings.TrimSpace(doc.Text),
		KeyValuePairs: map[string]string{},
		PageCount:     len(doc.Pages),
	}

	for pi, page := range doc.Pages {
		if page == nil {
			continue
		}
		for _, ff := range page.FormFields {
			if ff == nil {
				continue
			}
			k, v := "", ""
			if ff.FieldName != nil && ff.FieldName.TextAnchor != nil {
				k = strings.TrimSpace(textFromAnchor(doc.Text, ff.FieldName.TextAnchor))
			}
			if ff.FieldValue != nil && ff.FieldValue.TextAnchor != nil {
				v = strings.TrimSpace(textFromAnchor(doc.Text, ff.FieldValue.TextAnchor))
			}
			if k != "" && v != "" {
				out.KeyValuePairs[k] = v
			}
		}
		for _, t := range page.Tables {
			if t == nil {
				continue
			}
			dt := DocumentTable{PageNumber: pi + 1}
			if len(t.HeaderRows) > 0 && t.HeaderRows[0] != nil {
				dt.Headers = tableRowToCells(doc.Text, t.HeaderRows[0])
			}
			for _, r := range t.BodyRows {
				if r == nil {
					continue
				}
				dt.Rows = append(dt.Rows, tableRowToCells(doc.Text, r))
			}
			out.Tables = append(out.Tables, dt)
		}
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func tableRowToCells(full string, r *documentaipb.Document_Page_Table_TableRow) []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c == nil || c.Layout == nil || c.Layout.TextAnchor == nil {
			out = append(out, "")
			continue
		}
		out = append(out, collapseWhitespace(textFromAnchor(full, c.Layout.TextAnchor)))
	}
	return out
}
