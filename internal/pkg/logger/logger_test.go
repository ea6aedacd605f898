package logger

import "testing"

func TestSanitizeValueRedactsSecrets(t *testing.T) {
	if got := sanitizeValue("openai_api_key", "sk-123"); got != "[REDACTED]" {
		t.Fatalf("api key: want=%q got=%v", "[REDACTED]", got)
	}
	if got := sanitizeValue("gcs_credentials", "{}"); got != "[REDACTED]" {
		t.Fatalf("credentials: want=%q got=%v", "[REDACTED]", got)
	}
}

func TestSanitizeValueStripsSignedURLQuery(t *testing.T) {
	in := "https://storage.googleapis.com/bucket/happy.png?X-Goog-Algorithm=GOOG4-RSA-SHA256&X-Goog-Signature=abc"
	want := "https://storage.googleapis.com/bucket/happy.png?[REDACTED]"
	if got := sanitizeValue("presigned_url", in); got != want {
		t.Fatalf("signed url: want=%q got=%v", want, got)
	}
}

func TestSanitizeValueKeepsPlainValues(t *testing.T) {
	if got := sanitizeValue("prompt_type", "generate-image-happy"); got != "generate-image-happy" {
		t.Fatalf("plain: got=%v", got)
	}
	if got := sanitizeValue("url", "https://example.com/a.png"); got != "https://example.com/a.png" {
		t.Fatalf("unsigned url: got=%v", got)
	}
}
