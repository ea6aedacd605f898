package openai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/btcmood-backend/internal/pkg/httpx"
)

type ErrorKind string

const (
	// ErrorKindConnection covers transport failures, timeouts, 429 and 5xx.
	ErrorKindConnection ErrorKind = "connection"
	// ErrorKindResponse covers 2xx bodies that are malformed, blank or refused.
	ErrorKindResponse ErrorKind = "response"
	// ErrorKindRequest covers every other 4xx.
	ErrorKindRequest ErrorKind = "request"
)

// GenerationError is the only error type GenerateText and GenerateImageURL
// return.
type GenerationError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("openai %s %s error (http %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("openai %s %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func responseError(op string, err error) *GenerationError {
	return &GenerationError{Kind: ErrorKindResponse, Op: op, Err: err}
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}

	var de *decodeError
	if errors.As(err, &de) {
		return responseError(op, err)
	}

	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatusCode()
		kind := ErrorKindRequest
		if code == http.StatusTooManyRequests || code >= 500 || code == http.StatusRequestTimeout {
			kind = ErrorKindConnection
		}
		return &GenerationError{Kind: kind, Op: op, StatusCode: code, Err: err}
	}

	if httpx.IsTransportError(err) {
		return &GenerationError{Kind: ErrorKindConnection, Op: op, Err: err}
	}
	return &GenerationError{Kind: ErrorKindRequest, Op: op, Err: err}
}
