package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/repos"
	"github.com/yungbote/filevault-backend/internal/types"
)

// SearchFilters narrow the candidate set before any scoring happens. Each
// filter is independent of the others and only ever removes candidates.
type SearchFilters struct {
	Tags       []string
	Types      []string
	Categories []string
	After      *time.Time
	Before     *time.Time
	MinSize    *int64
	MaxSize    *int64
}

type SearchResult struct {
	Record *types.FileRecord `json:"record"`
	Score  float64           `json:"score"`
}

type SearchService interface {
	Search(ctx context.Context, query string, filters SearchFilters) ([]SearchResult, error)
}

type searchService struct {
	log     *logger.Logger
	records repos.FileRecordRepo
}

func NewSearchService(log *logger.Logger, records repos.FileRecordRepo) (SearchService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if records == nil {
		return nil, fmt.Errorf("record repo required")
	}
	return &searchService{
		log:     log.With("service", "SearchService"),
		records: records,
	}, nil
}

// Search ranks available files against a free-text query. Results come back
// in descending score; ties keep the candidates' upload order, so repeated
// queries over the same data are reproducible.
func (s *searchService) Search(ctx context.Context, query string, filters SearchFilters) ([]SearchResult, error) {
	candidates, err := s.records.ListByStatus(ctxutil.Default(ctx), nil, types.FileStatusAvailable)
	if err != nil {
		return nil, err
	}
	return RankRecords(candidates, query, filters), nil
}

// RankRecords applies the filter stages then scores the survivors.
func RankRecords(candidates []*types.FileRecord, query string, filters SearchFilters) []SearchResult {
	filtered := make([]*types.FileRecord, 0, len(candidates))
	for _, r := range candidates {
		if r == nil {
			continue
		}
		if !passesTimeWindow(r, filters) {
			continue
		}
		if !passesSizeWindow(r, filters) {
			continue
		}
		if !passesCategoryFilter(r, filters.Categories) {
			continue
		}
		if !passesTagFilter(r, filters.Tags) {
			continue
		}
		if !passesTypeFilter(r, filters.Types) {
			continue
		}
		filtered = append(filtered, r)
	}

	results := make([]SearchResult, 0, len(filtered))
	for _, r := range filtered {
		results = append(results, SearchResult{Record: r, Score: scoreRecord(r, query)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func passesTimeWindow(r *types.FileRecord, f SearchFilters) bool {
	if f.After != nil && r.UploadedAt.Before(*f.After) {
		return false
	}
	if f.Before != nil && r.UploadedAt.After(*f.Before) {
		return false
	}
	return true
}

func passesSizeWindow(r *types.FileRecord, f SearchFilters) bool {
	if f.MinSize != nil && r.Size < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && r.Size > *f.MaxSize {
		return false
	}
	return true
}

func passesCategoryFilter(r *types.FileRecord, want []string) bool {
	if len(want) == 0 {
		return true
	}
	meta := r.FileMetadata()
	for _, have := range meta.Categories {
		for _, w := range want {
			if strings.EqualFold(have, w) {
				return true
			}
		}
	}
	return false
}

func passesTagFilter(r *types.FileRecord, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, have := range r.TagList() {
		for _, w := range want {
			if strings.EqualFold(have, w) {
				return true
			}
		}
	}
	return false
}

func passesTypeFilter(r *types.FileRecord, want []string) bool {
	if len(want) == 0 {
		return true
	}
	meta := r.FileMetadata()
	for _, w := range want {
		if strings.EqualFold(meta.ContentType, w) || strings.EqualFold(r.MimeType, w) {
			return true
		}
	}
	return false
}

// scoreRecord is additive and case-insensitive. The full query string and
// each whitespace-split term contribute independently; an empty query scores
// every record 1.0 so filtered browsing keeps its stage order.
func scoreRecord(r *types.FileRecord, query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 1.0
	}
	terms := strings.Fields(q)

	score := 0.0
	meta := r.FileMetadata()

	name := strings.ToLower(r.Name)
	if strings.Contains(name, q) {
		score += 10
	}
	for _, t := range terms {
		if strings.Contains(name, t) {
			score += 5
		}
	}

	for _, tag := range r.TagList() {
		lt := strings.ToLower(tag)
		if strings.Contains(lt, q) {
			score += 3
		}
		for _, t := range terms {
			if strings.Contains(lt, t) {
				score += 1.5
			}
		}
	}

	for _, cat := range meta.Categories {
		lc := strings.ToLower(cat)
		if strings.Contains(lc, q) {
			score += 3
		}
		for _, t := range terms {
			if strings.Contains(lc, t) {
				score += 1.5
			}
		}
	}

	if meta.ExtractedText != "" {
		text := strings.ToLower(meta.ExtractedText)
		score += 2 * float64(strings.Count(text, q))
		for _, t := range terms {
			score += 0.5 * float64(strings.Count(text, t))
		}
	}

	for _, e := range meta.Entities {
		le := strings.ToLower(e.Text)
		if strings.Contains(le, q) {
			score += 2
		}
		for _, t := range terms {
			if strings.Contains(le, t) {
				score += 1
			}
		}
	}

	return score
}
