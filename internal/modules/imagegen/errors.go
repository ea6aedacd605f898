package imagegen

import (
	"errors"
	"fmt"
	"strings"

	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
)

// Step names a pipeline stage in logs, spans and errors.
type Step string

const (
	StepFetchContext  Step = "fetch_context"
	StepBuildPrompt   Step = "build_prompt"
	StepGenerateImage Step = "generate_image"
	StepStoreImage    Step = "store_image"
	StepActivate      Step = "presign_activate"
)

// ContextError aborts a whole run: no category proceeds without context.
type ContextError struct {
	Err error
}

func (e *ContextError) Error() string { return fmt.Sprintf("fetch context: %v", e.Err) }

func (e *ContextError) Unwrap() error { return e.Err }

// CategoryError is the failure of one category at one step.
type CategoryError struct {
	Category types.PromptType
	Step     Step
	Err      error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("category %s: %s: %v", e.Category, e.Step, e.Err)
}

func (e *CategoryError) Unwrap() error { return e.Err }

// CategoryErrors collects every failed category of one run.
type CategoryErrors struct {
	Errors []*CategoryError
}

func (e *CategoryErrors) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ce := range e.Errors {
		parts = append(parts, ce.Error())
	}
	return fmt.Sprintf("%d categories failed: %s", len(e.Errors), strings.Join(parts, "; "))
}

func (e *CategoryErrors) Unwrap() []error {
	out := make([]error, 0, len(e.Errors))
	for _, ce := range e.Errors {
		out = append(out, ce)
	}
	return out
}

// Failed reports whether category pt is among the failures.
func (e *CategoryErrors) Failed(pt types.PromptType) bool {
	for _, ce := range e.Errors {
		if ce.Category == pt {
			return true
		}
	}
	return false
}

// withRecordErr attaches a failure to persist the outcome of a step to the
// step error itself.
func withRecordErr(stepErr, recordErr error) error {
	if recordErr == nil {
		return stepErr
	}
	return errors.Join(stepErr, fmt.Errorf("record failure: %w", recordErr))
}

// errorKind names the error type stored in daily_image_version.error.
func errorKind(err error) string {
	var ce *CategoryError
	if errors.As(err, &ce) {
		err = ce.Err
	}
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
