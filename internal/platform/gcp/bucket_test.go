package gcp

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeObjectName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my file (1).pdf", "my_file__1_.pdf"},
		{`weird/..\name.txt`, "weird_.._name.txt"},
		{"snake_case-ok.csv", "snake_case-ok.csv"},
	}
	for _, tc := range cases {
		if got := SanitizeObjectName(tc.in); got != tc.want {
			t.Fatalf("SanitizeObjectName(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}

func TestObjectKeyForShape(t *testing.T) {
	key := ObjectKeyFor("invoice march.pdf")

	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 {
		t.Fatalf("key shape: want=year/month/name got=%q", key)
	}
	now := time.Now().UTC()
	if parts[0] != now.Format("2006") {
		t.Fatalf("year prefix: want=%s got=%s", now.Format("2006"), parts[0])
	}
	if parts[1] != now.Format("01") {
		t.Fatalf("month prefix: want=%s got=%s", now.Format("01"), parts[1])
	}
	if !strings.HasSuffix(key, "-invoice_march.pdf") {
		t.Fatalf("sanitized name suffix missing: got=%q", key)
	}

	if other := ObjectKeyFor("invoice march.pdf"); other == key {
		t.Fatalf("keys should be unique per call: got=%q twice", key)
	}
}
