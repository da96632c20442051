package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrStagingFailure     = errors.New("staging failure")
	ErrBackendJob         = errors.New("backend job failure")
	ErrRedistribution     = errors.New("redistribution failure")
	ErrCleanup            = errors.New("cleanup failure")
	ErrNotFound           = errors.New("not found")
	ErrConfiguration      = errors.New("configuration error")
	ErrTransient          = errors.New("transient failure")
)

// Kind names the class of a failure for callers that cannot switch on
// sentinels directly (HTTP status mapping, ledger rows, events).
type Kind string

const (
	KindInvalidRequest     Kind = "invalid_request"
	KindPreconditionFailed Kind = "precondition_failed"
	KindStaging            Kind = "staging_failure"
	KindBackendJob         Kind = "backend_job_failure"
	KindRedistribution     Kind = "redistribution_failure"
	KindCleanup            Kind = "cleanup_failure"
	KindNotFound           Kind = "not_found"
	KindConfiguration      Kind = "configuration"
	KindInternal           Kind = "internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf classifies err by the first marker it carries.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrPreconditionFailed):
		return KindPreconditionFailed
	case errors.Is(err, ErrStagingFailure):
		return KindStaging
	case errors.Is(err, ErrBackendJob):
		return KindBackendJob
	case errors.Is(err, ErrRedistribution):
		return KindRedistribution
	case errors.Is(err, ErrCleanup):
		return KindCleanup
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
