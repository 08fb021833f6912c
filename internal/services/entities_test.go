package services

import (
	"testing"

	"github.com/yungbote/filevault-backend/internal/types"
)

func entitiesOfType(in []types.Entity, et types.EntityType) []types.Entity {
	var out []types.Entity
	for _, e := range in {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func TestExtractEntitiesMixedText(t *testing.T) {
	got := ExtractEntities("Contact me at a@b.com or call 1234567890 on 12/05/2024")

	emails := entitiesOfType(got, types.EntityTypeEmail)
	if len(emails) != 1 || emails[0].Text != "a@b.com" {
		t.Fatalf("emails: want=[a@b.com] got=%v", emails)
	}
	if emails[0].Confidence != 0.9 {
		t.Fatalf("email confidence: want=0.9 got=%v", emails[0].Confidence)
	}

	phones := entitiesOfType(got, types.EntityTypePhoneNumber)
	if len(phones) != 1 || phones[0].Text != "1234567890" {
		t.Fatalf("phones: want=[1234567890] got=%v", phones)
	}
	if phones[0].Confidence != 0.8 {
		t.Fatalf("phone confidence: want=0.8 got=%v", phones[0].Confidence)
	}

	dates := entitiesOfType(got, types.EntityTypeDate)
	if len(dates) != 1 || dates[0].Text != "12/05/2024" {
		t.Fatalf("dates: want=[12/05/2024] got=%v", dates)
	}
	if dates[0].Confidence != 0.7 {
		t.Fatalf("date confidence: want=0.7 got=%v", dates[0].Confidence)
	}
}

func TestExtractEntitiesURL(t *testing.T) {
	got := ExtractEntities("see https://example.com/docs and http://a.b for details")

	urls := entitiesOfType(got, types.EntityTypeURL)
	if len(urls) != 2 {
		t.Fatalf("urls: want=2 got=%v", urls)
	}
	if urls[0].Text != "https://example.com/docs" {
		t.Fatalf("url[0]: want=https://example.com/docs got=%q", urls[0].Text)
	}
}

func TestExtractEntitiesKeepsDuplicates(t *testing.T) {
	got := ExtractEntities("a@b.com again a@b.com")

	emails := entitiesOfType(got, types.EntityTypeEmail)
	if len(emails) != 2 {
		t.Fatalf("duplicates must not be collapsed: want=2 got=%d", len(emails))
	}
}

func TestExtractEntitiesEmptyText(t *testing.T) {
	if got := ExtractEntities(""); got != nil {
		t.Fatalf("empty text: want=nil got=%v", got)
	}
}
