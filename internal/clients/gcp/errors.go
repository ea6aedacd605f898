package gcp

import "fmt"

type StorageErrorKind string

const (
	StorageErrorFetch       StorageErrorKind = "fetch"
	StorageErrorUpload      StorageErrorKind = "upload"
	StorageErrorPresign     StorageErrorKind = "presign"
	StorageErrorCredentials StorageErrorKind = "credentials"
)

// StorageError is the only error type the image store returns.
type StorageError struct {
	Kind StorageErrorKind
	Key  string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("object storage %s failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("object storage %s failed for %q: %v", e.Kind, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
