package gcp

import (
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
)

// clientOptionsFromEnv resolves credentials at call time. Nothing is cached
// so rotated keys are picked up by the next acquisition.
func clientOptionsFromEnv() ([]option.ClientOption, error) {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	opts := []option.ClientOption{}
	if creds == "" {
		// Application default credentials (metadata server, gcloud).
		return opts, nil
	}
	if strings.HasPrefix(creds, "{") {
		return append(opts, option.WithCredentialsJSON([]byte(creds))), nil
	}
	if _, err := os.Stat(creds); err != nil {
		return nil, fmt.Errorf("credentials file %q: %w", creds, err)
	}
	return append(opts, option.WithCredentialsFile(creds)), nil
}
