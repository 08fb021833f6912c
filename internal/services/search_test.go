package services

import (
	"testing"
	"time"

	"github.com/yungbote/filevault-backend/internal/types"
)

func mkRecord(t *testing.T, name string, size int64, uploadedAt time.Time, tags []string, meta types.FileMetadata) *types.FileRecord {
	t.Helper()
	r := &types.FileRecord{
		Name:       name,
		Size:       size,
		Status:     types.FileStatusAvailable,
		UploadedAt: uploadedAt,
	}
	if err := r.SetTagList(tags); err != nil {
		t.Fatalf("SetTagList: %v", err)
	}
	if err := r.SetFileMetadata(meta); err != nil {
		t.Fatalf("SetFileMetadata: %v", err)
	}
	return r
}

func TestRankRecordsTieBreakIsInsertionOrder(t *testing.T) {
	now := time.Now().UTC()
	invoice := mkRecord(t, "invoice_march.pdf", 100, now, []string{"finance"}, types.FileMetadata{ContentType: "document"})
	report := mkRecord(t, "report_march.pdf", 100, now, nil, types.FileMetadata{ContentType: "document"})

	results := RankRecords([]*types.FileRecord{invoice, report}, "march", SearchFilters{})
	if len(results) != 2 {
		t.Fatalf("results: want=2 got=%d", len(results))
	}
	// Identical filename scores (+10 full, +5 term); the stable sort must
	// keep the original order.
	if results[0].Score != results[1].Score {
		t.Fatalf("scores should tie: got %v vs %v", results[0].Score, results[1].Score)
	}
	if results[0].Record.Name != "invoice_march.pdf" {
		t.Fatalf("tie-break: want insertion order, got %q first", results[0].Record.Name)
	}
}

func TestRankRecordsFilenameAndTagScoring(t *testing.T) {
	now := time.Now().UTC()
	a := mkRecord(t, "invoice_march.pdf", 100, now, []string{"finance"}, types.FileMetadata{})
	b := mkRecord(t, "report_april.pdf", 100, now, []string{"march"}, types.FileMetadata{})

	results := RankRecords([]*types.FileRecord{a, b}, "march", SearchFilters{})
	// a: filename full +10, term +5 = 15. b: tag full +3, tag term +1.5 = 4.5.
	if results[0].Record.Name != "invoice_march.pdf" || results[0].Score != 15 {
		t.Fatalf("first: want invoice_march.pdf@15 got %q@%v", results[0].Record.Name, results[0].Score)
	}
	if results[1].Score != 4.5 {
		t.Fatalf("second score: want=4.5 got=%v", results[1].Score)
	}
}

func TestRankRecordsTextOccurrences(t *testing.T) {
	now := time.Now().UTC()
	r := mkRecord(t, "notes.txt", 10, now, nil, types.FileMetadata{
		ContentType:   "text/plain",
		ExtractedText: "march planning for march and more march",
	})

	results := RankRecords([]*types.FileRecord{r}, "march", SearchFilters{})
	// 3 occurrences: full +2 each, term +0.5 each = 7.5.
	if results[0].Score != 7.5 {
		t.Fatalf("score: want=7.5 got=%v", results[0].Score)
	}
}

func TestRankRecordsMultiTermQuery(t *testing.T) {
	now := time.Now().UTC()
	r := mkRecord(t, "march_invoice.pdf", 10, now, nil, types.FileMetadata{})

	results := RankRecords([]*types.FileRecord{r}, "march invoice", SearchFilters{})
	// Full query "march invoice" not in "march_invoice.pdf"; both terms are:
	// +5 +5 = 10.
	if results[0].Score != 10 {
		t.Fatalf("score: want=10 got=%v", results[0].Score)
	}
}

func TestRankRecordsEmptyQueryUniformScore(t *testing.T) {
	now := time.Now().UTC()
	a := mkRecord(t, "a.pdf", 10, now, nil, types.FileMetadata{})
	b := mkRecord(t, "b.pdf", 10, now, nil, types.FileMetadata{})

	results := RankRecords([]*types.FileRecord{a, b}, "   ", SearchFilters{})
	if len(results) != 2 {
		t.Fatalf("results: want=2 got=%d", len(results))
	}
	for i, res := range results {
		if res.Score != 1.0 {
			t.Fatalf("score[%d]: want=1.0 got=%v", i, res.Score)
		}
	}
	if results[0].Record.Name != "a.pdf" {
		t.Fatalf("empty query must keep insertion order")
	}
}

func TestRankRecordsTimeWindowFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := mkRecord(t, "old.pdf", 10, base.AddDate(0, -2, 0), nil, types.FileMetadata{})
	mid := mkRecord(t, "mid.pdf", 10, base, nil, types.FileMetadata{})
	newer := mkRecord(t, "new.pdf", 10, base.AddDate(0, 2, 0), nil, types.FileMetadata{})

	after := base.AddDate(0, -1, 0)
	before := base.AddDate(0, 1, 0)
	results := RankRecords([]*types.FileRecord{old, mid, newer}, "", SearchFilters{After: &after, Before: &before})
	if len(results) != 1 || results[0].Record.Name != "mid.pdf" {
		t.Fatalf("time window: want=[mid.pdf] got=%v", names(results))
	}
}

func TestRankRecordsSizeWindowFilter(t *testing.T) {
	now := time.Now().UTC()
	small := mkRecord(t, "small.pdf", 10, now, nil, types.FileMetadata{})
	medium := mkRecord(t, "medium.pdf", 500, now, nil, types.FileMetadata{})
	large := mkRecord(t, "large.pdf", 5000, now, nil, types.FileMetadata{})

	minSize := int64(100)
	maxSize := int64(1000)
	results := RankRecords([]*types.FileRecord{small, medium, large}, "", SearchFilters{MinSize: &minSize, MaxSize: &maxSize})
	if len(results) != 1 || results[0].Record.Name != "medium.pdf" {
		t.Fatalf("size window: want=[medium.pdf] got=%v", names(results))
	}
}

func TestRankRecordsCategoryFilterCaseInsensitive(t *testing.T) {
	now := time.Now().UTC()
	inv := mkRecord(t, "a.pdf", 10, now, nil, types.FileMetadata{Categories: []string{"Invoice"}})
	rep := mkRecord(t, "b.pdf", 10, now, nil, types.FileMetadata{Categories: []string{"report"}})

	results := RankRecords([]*types.FileRecord{inv, rep}, "", SearchFilters{Categories: []string{"INVOICE"}})
	if len(results) != 1 || results[0].Record.Name != "a.pdf" {
		t.Fatalf("category filter: want=[a.pdf] got=%v", names(results))
	}
}

func names(results []SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Record.Name)
	}
	return out
}
