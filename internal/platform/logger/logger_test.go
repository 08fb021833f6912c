package logger

import "testing"

func TestIsRedactKey(t *testing.T) {
	redacted := []string{"token", "version_token", "authorization", "db_password", "api_key", "apikey", "gcp_credentials"}
	for _, k := range redacted {
		if !isRedactKey(k) {
			t.Fatalf("key %q should be redacted", k)
		}
	}
	plain := []string{"file_id", "storage_key", "status", "error"}
	for _, k := range plain {
		if isRedactKey(k) {
			t.Fatalf("key %q should not be redacted", k)
		}
	}
}

func TestSanitizeValueRedactsSecrets(t *testing.T) {
	if got := sanitizeValue("password", "hunter2"); got != "[REDACTED]" {
		t.Fatalf("want=[REDACTED] got=%v", got)
	}
	if got := sanitizeValue("file_id", "abc"); got != "abc" {
		t.Fatalf("plain value must pass through: got=%v", got)
	}
}

func TestLooksLikeSignedURL(t *testing.T) {
	signed := "https://storage.googleapis.com/b/o.pdf?X-Goog-Algorithm=GOOG4-RSA-SHA256&X-Goog-Signature=abc"
	if !looksLikeSignedURL(signed) {
		t.Fatalf("signed url not recognized: %q", signed)
	}
	if looksLikeSignedURL("https://example.com/plain/path") {
		t.Fatalf("plain url must not be treated as signed")
	}
	if looksLikeSignedURL("not a url?signature=x") {
		t.Fatalf("non-http string must not be treated as signed")
	}
}

func TestRedactSignedURLKeepsPath(t *testing.T) {
	in := "https://storage.googleapis.com/b/o.pdf?X-Goog-Signature=abc"
	want := "https://storage.googleapis.com/b/o.pdf?[REDACTED]"
	if got := redactSignedURL(in); got != want {
		t.Fatalf("want=%q got=%q", want, got)
	}
}
