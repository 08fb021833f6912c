package services

import (
	"regexp"

	"github.com/yungbote/filevault-backend/internal/types"
)

// Fixed confidence constants per pattern; these are not computed scores.
var entityPatterns = []struct {
	re         *regexp.Regexp
	entityType types.EntityType
	confidence float64
}{
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), types.EntityTypeEmail, 0.9},
	{regexp.MustCompile(`\+?[0-9]{10,12}`), types.EntityTypePhoneNumber, 0.8},
	{regexp.MustCompile(`https?://[^\s]+`), types.EntityTypeURL, 0.9},
	{regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`), types.EntityTypeDate, 0.7},
}

// ExtractEntities collects every non-overlapping left-to-right match of each
// pattern. Repeated values are kept as separate entities on purpose; callers
// that want counts can rely on that.
func ExtractEntities(text string) []types.Entity {
	if text == "" {
		return nil
	}
	var out []types.Entity
	for _, p := range entityPatterns {
		for _, m := range p.re.FindAllString(text, -1) {
			out = append(out, types.Entity{
				Text:       m,
				Type:       p.entityType,
				Confidence: p.confidence,
			})
		}
	}
	return out
}
